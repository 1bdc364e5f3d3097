package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"episode-mapper/internal/jobs"
	"episode-mapper/internal/preview"
	"episode-mapper/internal/view"
)

func (m Model) View() string {
	v := m.render()

	var body string
	switch v.Screen {
	case view.ScreenForm:
		body = m.formView(v)
	case view.ScreenWaiting:
		body = m.waitingView(v)
	case view.ScreenResults:
		body = m.resultsView(v)
	case view.ScreenError:
		body = m.errorView(v)
	}

	return joinNonEmpty(
		titleStyle.Render(v.Title),
		subtitleStyle.Render(v.Subtitle),
		body,
		m.toastView(),
		statusStyle.Render(m.notice),
		helpStyle.Render(helpLine(v.Screen)),
	)
}

func (m Model) formView(v view.View) string {
	var b strings.Builder
	for i, f := range v.Fields {
		b.WriteString(labelStyle.Render(f.Label))
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
		if f.Error != "" {
			b.WriteString(fieldErrorStyle.Render(f.Error))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if submit, ok := v.Find(view.ActionSubmit); ok {
		label := "[ " + submit.Label + " ]"
		if submit.Busy {
			label = m.spinner.View() + " " + submit.Label
		}
		b.WriteString(statusStyle.Render(label))
	}
	return b.String()
}

func (m Model) waitingView(v view.View) string {
	lines := []string{
		fmt.Sprintf("%s %s", m.spinner.View(), statusStyle.Render(v.StatusLabel)),
		subtitleStyle.Render("Job " + v.JobID + "  " + v.Elapsed),
		"",
		stepsView(v.Steps),
		m.progress.ViewAs(stepFraction(v.CurrentStep)),
	}
	if v.Asset != "" {
		lines = append(lines, subtitleStyle.Render("While you wait: "+v.Asset))
	}
	lines = append(lines, "", subtitleStyle.Render(v.Hint))
	if links := actionsView(v.Actions); links != "" {
		lines = append(lines, "", links)
	}
	return strings.Join(lines, "\n")
}

func (m Model) resultsView(v view.View) string {
	lines := []string{
		statusStyle.Render(v.StatusLabel) + subtitleStyle.Render("  Job "+v.JobID+"  "+v.Elapsed),
		stepsView(v.Steps),
		"",
		actionsView(v.Actions),
	}

	snap := m.previews[m.active].Snapshot()
	if v.InlineTranscript || snap.State != preview.StateIdle {
		header := fmt.Sprintf("%s  [%s]", strings.ToUpper(snap.Kind[:1])+snap.Kind[1:], snap.DirectionLabel)
		lines = append(lines, "", panelStyle.Render(labelStyle.Render(header)+"\n"+m.viewport.View()))
	}
	return strings.Join(lines, "\n")
}

func (m Model) errorView(v view.View) string {
	lines := []string{
		errorStyle.Render(v.StatusLabel),
		v.ErrorMessage,
	}
	if links := actionsView(v.Actions); links != "" {
		lines = append(lines, "", links)
	}
	return strings.Join(lines, "\n")
}

func (m Model) toastView() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		style, ok := toastStyles[string(t.Level)]
		if !ok {
			style = lipgloss.NewStyle()
		}
		lines = append(lines, style.Render("• "+t.Message))
	}
	return "\n" + strings.Join(lines, "\n")
}

func stepsView(steps []view.Step) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		switch s.State {
		case view.StepDone:
			parts = append(parts, doneStepStyle.Render("✓ "+s.Title))
		case view.StepActive:
			parts = append(parts, activeStepStyle.Render("● "+s.Title))
		default:
			parts = append(parts, pendingStepStyle.Render("○ "+s.Title))
		}
	}
	return strings.Join(parts, "  ")
}

// actionsView lists link actions with their URLs so they can be opened
// from the terminal.
func actionsView(actions []view.Action) string {
	var lines []string
	for _, a := range actions {
		switch {
		case a.URL != "":
			lines = append(lines, labelStyle.Render(a.Label+": ")+linkStyle.Render(a.URL))
		case a.Disabled:
			lines = append(lines, pendingStepStyle.Render(a.Label+": not available"))
		}
	}
	return strings.Join(lines, "\n")
}

func stepFraction(current int) float64 {
	total := len(jobs.StepTitles)
	if total == 0 {
		return 0
	}
	return float64(current+1) / float64(total)
}

func helpLine(screen view.Screen) string {
	switch screen {
	case view.ScreenForm:
		return "tab switch field | enter submit | esc quit"
	case view.ScreenWaiting:
		return "esc cancel job | q quit"
	case view.ScreenResults:
		return "t transcript | m mapping | tab toggle | d direction | c copy | r reload | n submit another | q quit"
	default:
		return "n submit another | q quit"
	}
}
