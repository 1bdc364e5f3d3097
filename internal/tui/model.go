// Package tui is the terminal front end. It drives the same job controller
// as the desktop app and draws the screens produced by view.Render.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"episode-mapper/internal/config"
	"episode-mapper/internal/direction"
	"episode-mapper/internal/domain"
	"episode-mapper/internal/jobs"
	"episode-mapper/internal/preview"
	"episode-mapper/internal/view"
)

const (
	refreshInterval = 250 * time.Millisecond
	maxToasts       = 3
)

const (
	previewTranscript = iota
	previewMapping
)

// JobRunner is the part of the job controller the terminal needs.
type JobRunner interface {
	Snapshot() jobs.Snapshot
	Submit(ctx context.Context, sub domain.Submission) error
	Reset(ctx context.Context) error
}

type (
	refreshMsg   struct{ at time.Time }
	submittedMsg struct{ err error }
	resetMsg     struct{ err error }
	previewMsg   struct {
		index int
		snap  preview.Snapshot
		err   error
	}
	copiedMsg struct {
		kind string
		err  error
	}
)

// Option customizes a Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.copyText = write }
}

// Model is the Bubble Tea model for one session.
type Model struct {
	jobs     JobRunner
	events   *jobs.EventBus
	mode     config.ResultMode
	previews [2]*preview.Viewer
	copyText func(string) error

	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model
	active   int
	loading  bool

	snap        jobs.Snapshot
	lastSeq     int64
	toasts      []jobs.Event
	fieldErrors map[string]string
	notice      string

	width  int
	height int
}

// New builds the terminal model. transcript and mapping are the preview
// viewers used on the results screen.
func New(runner JobRunner, bus *jobs.EventBus, cfg config.Config, transcript, mapping *preview.Viewer, opts ...Option) Model {
	videoURL := textinput.New()
	videoURL.Placeholder = "https://drive.google.com/file/d/..."
	videoURL.CharLimit = 2048
	videoURL.Width = 60
	videoURL.Focus()

	episode := textinput.New()
	episode.Placeholder = "Episode 12 - The Return"
	episode.CharLimit = 256
	episode.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	vp := viewport.New(80, 16)

	m := Model{
		jobs:     runner,
		events:   bus,
		mode:     cfg.ResultMode,
		previews: [2]*preview.Viewer{transcript, mapping},
		copyText: clipboard.WriteAll,
		inputs:   []textinput.Model{videoURL, episode},
		spinner:  spin,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		viewport: vp,
		snap:     runner.Snapshot(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, refreshCmd())
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(at time.Time) tea.Msg {
		return refreshMsg{at: at}
	})
}

func submitCmd(runner JobRunner, sub domain.Submission) tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: runner.Submit(context.Background(), sub)}
	}
}

func resetCmd(runner JobRunner) tea.Cmd {
	return func() tea.Msg {
		return resetMsg{err: runner.Reset(context.Background())}
	}
}

func loadPreviewCmd(index int, v *preview.Viewer, link string) tea.Cmd {
	return func() tea.Msg {
		snap, err := v.Load(context.Background(), link)
		return previewMsg{index: index, snap: snap, err: err}
	}
}

func reloadPreviewCmd(index int, v *preview.Viewer) tea.Cmd {
	return func() tea.Msg {
		snap, err := v.Reload(context.Background())
		return previewMsg{index: index, snap: snap, err: err}
	}
}

func copyCmd(write func(string) error, snap preview.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{kind: snap.Kind, err: write(snap.Text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case refreshMsg:
		m.refresh()
		cmds := []tea.Cmd{refreshCmd()}
		if cmd := m.autoLoadPreviews(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.progress.Update(msg)
		if p, ok := updated.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd

	case submittedMsg:
		var vErr *jobs.ValidationError
		switch {
		case errors.As(msg.err, &vErr):
			m.fieldErrors = vErr.Fields
		case msg.err != nil:
			m.fieldErrors = nil
			m.notice = msg.err.Error()
		default:
			m.fieldErrors = nil
			m.notice = ""
		}
		m.refresh()
		return m, nil

	case resetMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.clearSession()
		m.refresh()
		return m, nil

	case previewMsg:
		m.loading = false
		if errors.Is(msg.err, preview.ErrSuperseded) {
			return m, nil
		}
		if msg.index == m.active {
			m.showPreview()
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Failed to copy %s: %v", msg.kind, msg.err)
		} else {
			m.notice = fmt.Sprintf("Copied %s to clipboard", msg.kind)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.screen() {
	case view.ScreenForm:
		return m.handleFormKey(msg)
	case view.ScreenWaiting:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "esc":
			return m, resetCmd(m.jobs)
		}
	case view.ScreenResults, view.ScreenError:
		return m.handleResultKey(msg)
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snap.Phase == jobs.PhaseSubmitting {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.setFocus((m.focus + 1) % len(m.inputs))
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		return m, nil
	case "enter":
		sub := domain.Submission{
			VideoURL:    m.inputs[0].Value(),
			EpisodeName: m.inputs[1].Value(),
		}
		m.notice = ""
		return m, submitCmd(m.jobs, sub)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "n":
		return m, resetCmd(m.jobs)
	}

	if m.screen() != view.ScreenResults {
		return m, nil
	}

	switch msg.String() {
	case "t":
		return m, m.openPreview(previewTranscript)
	case "m":
		return m, m.openPreview(previewMapping)
	case "tab":
		return m, m.openPreview(1 - m.active)
	case "d":
		m.previews[m.active].CycleMode()
		m.showPreview()
		return m, nil
	case "c":
		snap := m.previews[m.active].Snapshot()
		if !snap.CanCopy {
			m.notice = fmt.Sprintf("%s is not loaded", snap.Kind)
			return m, nil
		}
		return m, copyCmd(m.copyText, snap)
	case "r":
		if m.previews[m.active].Snapshot().State == preview.StateIdle {
			return m, m.loadPreview(m.active)
		}
		m.loading = true
		return m, reloadPreviewCmd(m.active, m.previews[m.active])
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// openPreview switches the results pane to index, loading it on first use.
func (m *Model) openPreview(index int) tea.Cmd {
	m.active = index
	m.showPreview()
	if m.previews[index].Snapshot().State != preview.StateIdle {
		return nil
	}
	return m.loadPreview(index)
}

func (m *Model) loadPreview(index int) tea.Cmd {
	link := m.snap.Job.TranscriptURL
	if index == previewMapping {
		link = m.snap.Job.MappingURL
	}
	if link == "" {
		m.notice = "No link available yet"
		return nil
	}
	m.loading = true
	return loadPreviewCmd(index, m.previews[index], link)
}

// autoLoadPreviews starts both previews once a job finishes in inline mode.
func (m *Model) autoLoadPreviews() tea.Cmd {
	if m.mode != config.ResultModeInline || m.snap.Phase != jobs.PhaseDone || m.loading {
		return nil
	}
	var cmds []tea.Cmd
	for i, v := range m.previews {
		if v.Snapshot().State == preview.StateIdle {
			if cmd := m.loadPreview(i); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// refresh pulls the controller snapshot and any new bus events.
func (m *Model) refresh() {
	m.snap = m.jobs.Snapshot()
	if m.events == nil {
		return
	}
	events := m.events.Since(m.lastSeq)
	if len(events) == 0 {
		return
	}
	m.lastSeq = events[len(events)-1].Seq
	m.toasts = append(m.toasts, jobs.Toasts(events)...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) clearSession() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.setFocus(0)
	for _, v := range m.previews {
		v.Cancel()
	}
	m.active = previewTranscript
	m.loading = false
	m.fieldErrors = nil
	m.notice = ""
	m.viewport.SetContent("")
}

func (m *Model) setFocus(index int) {
	m.focus = index
	for i := range m.inputs {
		if i == index {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *Model) showPreview() {
	snap := m.previews[m.active].Snapshot()
	switch snap.State {
	case preview.StateReady:
		text := snap.Text
		if m.active == previewMapping {
			if styled, err := renderMarkdown(snap.Text, m.viewport.Width); err == nil {
				text = styled
			}
		}
		m.viewport.SetContent(alignText(text, snap.Direction == direction.RTL, m.viewport.Width))
	case preview.StateError:
		m.viewport.SetContent(errorStyle.Render(snap.Error))
	case preview.StateLoading:
		m.viewport.SetContent(fmt.Sprintf("Loading %s...", snap.Kind))
	default:
		m.viewport.SetContent("")
	}
	m.viewport.GotoTop()
}

func (m *Model) resize() {
	width := lo.Max([]int{40, m.width - 4})
	m.viewport.Width = width - 4
	m.viewport.Height = lo.Max([]int{6, m.height - 18})
	m.progress.Width = lo.Min([]int{60, width})
	for i := range m.inputs {
		m.inputs[i].Width = lo.Min([]int{80, width - 4})
	}
	if m.screen() == view.ScreenResults {
		m.showPreview()
	}
}

func (m Model) screen() view.Screen {
	return m.render().Screen
}

func (m Model) render() view.View {
	return view.Render(m.snap, view.Options{
		ResultMode: m.mode,
		Values: map[string]string{
			jobs.FieldVideoURL:    m.inputs[0].Value(),
			jobs.FieldEpisodeName: m.inputs[1].Value(),
		},
		FieldErrors: m.fieldErrors,
	})
}

// alignText right-aligns each line for right-to-left text.
func alignText(text string, rtl bool, width int) string {
	if !rtl || width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Right).Render(text)
}

func joinNonEmpty(parts ...string) string {
	return strings.Join(lo.Compact(parts), "\n")
}
