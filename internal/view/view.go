// Package view projects a job snapshot onto the screen a front end draws.
// Render has no side effects; the desktop and terminal clients both use it.
package view

import (
	"episode-mapper/internal/config"
	"episode-mapper/internal/jobs"
)

// Screen names which of the four layouts is active.
type Screen string

const (
	ScreenForm    Screen = "form"
	ScreenWaiting Screen = "waiting"
	ScreenResults Screen = "results"
	ScreenError   Screen = "error"
)

// Action identifiers a front end dispatches back to the controller.
const (
	ActionSubmit         = "submit"
	ActionReset          = "reset"
	ActionOpenTranscript = "open-transcript"
	ActionOpenMapping    = "open-mapping"
)

const (
	titleForm       = "Start New Transcription"
	subtitleForm    = "Enter the details below to begin the mapping process."
	titleProcessing = "Processing Request"
	titleResults    = "Your files are ready"
	keepOpenHint    = "Keep this window open while we process your file. We will refresh the status and links automatically."
)

// StepState marks a progress step relative to the current one.
type StepState string

const (
	StepDone    StepState = "done"
	StepActive  StepState = "active"
	StepPending StepState = "pending"
)

// Field is one form input.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Value       string `json:"value"`
	Error       string `json:"error,omitempty"`
	Disabled    bool   `json:"disabled"`
}

// Step is one entry of the progress indicator.
type Step struct {
	Title string    `json:"title"`
	State StepState `json:"state"`
}

// Action is a button. URL is set for actions that open a result link.
type Action struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	URL      string `json:"url,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Busy     bool   `json:"busy,omitempty"`
}

// View is everything a front end needs to draw the current screen.
type View struct {
	Screen           Screen   `json:"screen"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle,omitempty"`
	JobID            string   `json:"jobId,omitempty"`
	Fields           []Field  `json:"fields,omitempty"`
	StatusLabel      string   `json:"statusLabel,omitempty"`
	Elapsed          string   `json:"elapsed,omitempty"`
	Asset            string   `json:"asset,omitempty"`
	Steps            []Step   `json:"steps,omitempty"`
	CurrentStep      int      `json:"currentStep"`
	Hint             string   `json:"hint,omitempty"`
	ErrorMessage     string   `json:"errorMessage,omitempty"`
	Actions          []Action `json:"actions,omitempty"`
	InlineTranscript bool     `json:"inlineTranscript,omitempty"`
}

// Options carries render inputs that are not part of the job state.
type Options struct {
	ResultMode config.ResultMode
	// Values holds unsubmitted form input, keyed by field name. When a
	// key is absent the last submitted value is shown.
	Values map[string]string
	// FieldErrors holds messages from the last failed validation.
	FieldErrors map[string]string
}

// Render maps snap to a View.
func Render(snap jobs.Snapshot, opts Options) View {
	switch snap.Phase {
	case jobs.PhasePolling:
		return renderWaiting(snap)
	case jobs.PhaseDone:
		return renderResults(snap, opts)
	case jobs.PhaseErrored, jobs.PhaseTimedOut:
		return renderError(snap)
	default:
		return renderForm(snap, opts)
	}
}

func renderForm(snap jobs.Snapshot, opts Options) View {
	busy := snap.Phase == jobs.PhaseSubmitting
	submitLabel := "Submit Request"
	if busy {
		submitLabel = "Processing..."
	}

	value := func(name, submitted string) string {
		if v, ok := opts.Values[name]; ok {
			return v
		}
		return submitted
	}

	return View{
		Screen:   ScreenForm,
		Title:    titleForm,
		Subtitle: subtitleForm,
		Fields: []Field{
			{
				Name:        jobs.FieldVideoURL,
				Label:       "Drive Video URL",
				Placeholder: "https://drive.google.com/...",
				Value:       value(jobs.FieldVideoURL, snap.Submission.VideoURL),
				Error:       opts.FieldErrors[jobs.FieldVideoURL],
				Disabled:    busy,
			},
			{
				Name:        jobs.FieldEpisodeName,
				Label:       "Episode Name",
				Placeholder: "e.g. Episode 42 - The Beginning",
				Value:       value(jobs.FieldEpisodeName, snap.Submission.EpisodeName),
				Error:       opts.FieldErrors[jobs.FieldEpisodeName],
				Disabled:    busy,
			},
		},
		Actions: []Action{{ID: ActionSubmit, Label: submitLabel, Disabled: busy, Busy: busy}},
	}
}

func renderWaiting(snap jobs.Snapshot) View {
	v := View{
		Screen:      ScreenWaiting,
		Title:       titleProcessing,
		JobID:       snap.Job.ID,
		StatusLabel: snap.StatusLabel,
		Elapsed:     snap.ElapsedLabel,
		Asset:       snap.Asset,
		Steps:       steps(snap.Step),
		CurrentStep: snap.Step,
		Hint:        keepOpenHint,
	}
	if snap.Job.TranscriptURL != "" {
		v.Actions = append(v.Actions, Action{ID: ActionOpenTranscript, Label: "Open Transcript (ready)", URL: snap.Job.TranscriptURL})
	}
	if snap.Job.MappingURL != "" {
		v.Actions = append(v.Actions, Action{ID: ActionOpenMapping, Label: "Open Mapping (ready)", URL: snap.Job.MappingURL})
	}
	return v
}

func renderResults(snap jobs.Snapshot, opts Options) View {
	return View{
		Screen:           ScreenResults,
		Title:            titleResults,
		JobID:            snap.Job.ID,
		StatusLabel:      snap.StatusLabel,
		Elapsed:          snap.ElapsedLabel,
		Steps:            steps(snap.Step),
		CurrentStep:      snap.Step,
		InlineTranscript: opts.ResultMode == config.ResultModeInline,
		Actions: []Action{
			{ID: ActionOpenTranscript, Label: "Download Transcript", URL: snap.Job.TranscriptURL, Disabled: snap.Job.TranscriptURL == ""},
			{ID: ActionOpenMapping, Label: "Download Mapping", URL: snap.Job.MappingURL, Disabled: snap.Job.MappingURL == ""},
			{ID: ActionReset, Label: "Submit Another"},
		},
	}
}

func renderError(snap jobs.Snapshot) View {
	v := View{
		Screen:       ScreenError,
		Title:        titleProcessing,
		JobID:        snap.Job.ID,
		StatusLabel:  snap.StatusLabel,
		CurrentStep:  snap.Step,
		ErrorMessage: snap.ErrorMessage,
	}
	// Links that arrived before the failure stay reachable.
	if snap.Job.TranscriptURL != "" {
		v.Actions = append(v.Actions, Action{ID: ActionOpenTranscript, Label: "Open Transcript (ready)", URL: snap.Job.TranscriptURL})
	}
	if snap.Job.MappingURL != "" {
		v.Actions = append(v.Actions, Action{ID: ActionOpenMapping, Label: "Open Mapping (ready)", URL: snap.Job.MappingURL})
	}
	v.Actions = append(v.Actions, Action{ID: ActionReset, Label: "Submit Another"})
	return v
}

func steps(current int) []Step {
	out := make([]Step, len(jobs.StepTitles))
	for i, title := range jobs.StepTitles {
		state := StepPending
		switch {
		case i < current:
			state = StepDone
		case i == current:
			state = StepActive
		}
		out[i] = Step{Title: title, State: state}
	}
	return out
}

// Find returns the action with id, if present.
func (v View) Find(id string) (Action, bool) {
	for _, a := range v.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}
