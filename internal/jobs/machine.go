package jobs

import (
	"errors"
	"fmt"
	"time"

	"episode-mapper/internal/domain"
	"episode-mapper/internal/remote"
)

// ErrJobAlreadyRunning is returned when submitting while a job is active.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrResetRequired is returned when submitting while a finished job is
// still shown.
var ErrResetRequired = errors.New("reset required before a new job")

var (
	ErrJobFailed  = errors.New("job failed")
	ErrJobTimeout = errors.New("job timed out")
)

const (
	MessageSubmitted      = "Request submitted. We are processing your file."
	MessageComplete       = "Processing complete"
	MessageFailed         = "Processing failed. Please try again."
	MessageRequestFailed  = "Request failed"
	messageTimeoutPattern = "Processing timed out after %s. Please try again."
)

// Phase is the local lifecycle position of the single active job.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseDone       Phase = "done"
	PhaseErrored    Phase = "errored"
	PhaseTimedOut   Phase = "timed_out"
)

// Terminal reports whether no further polling happens in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseErrored || p == PhaseTimedOut
}

// State is the full value the machine owns. Copies are safe to share.
type State struct {
	Phase        Phase
	Generation   uint64
	Submission   domain.Submission
	Job          domain.Job
	Elapsed      time.Duration
	ErrorMessage string
	Asset        string
}

// Input is anything the machine reacts to. Inputs produced by timers or
// requests carry the generation that scheduled them.
type Input interface{ input() }

type (
	// SubmitRequested starts a new job from an already validated form.
	SubmitRequested struct{ Submission domain.Submission }
	// SubmitSucceeded reports the id returned by the submit webhook.
	SubmitSucceeded struct {
		Generation uint64
		JobID      string
		At         time.Time
		Asset      string
	}
	// SubmitFailed reports a rejected or unreachable submit webhook.
	SubmitFailed struct {
		Generation uint64
		Err        error
	}
	// PollDue fires on every poll interval.
	PollDue struct{ Generation uint64 }
	// PollSucceeded carries one status snapshot, or nil when the endpoint
	// had nothing to report.
	PollSucceeded struct {
		Generation uint64
		Result     *domain.PollResult
	}
	// PollFailed carries a status request failure.
	PollFailed struct {
		Generation uint64
		Err        error
		Initial    bool
	}
	// DeadlineReached fires once when the job timeout elapses.
	DeadlineReached struct{ Generation uint64 }
	// ElapsedTick fires every second while polling.
	ElapsedTick struct {
		Generation uint64
		Now        time.Time
	}
	// ResetRequested discards the current job.
	ResetRequested struct{}
)

func (SubmitRequested) input() {}
func (SubmitSucceeded) input() {}
func (SubmitFailed) input()    {}
func (PollDue) input()         {}
func (PollSucceeded) input()   {}
func (PollFailed) input()      {}
func (DeadlineReached) input() {}
func (ElapsedTick) input()     {}
func (ResetRequested) input()  {}

// Effect is work the controller performs after a transition.
type Effect interface{ effect() }

type (
	// CallSubmit posts the submission to the submit webhook.
	CallSubmit struct {
		Generation uint64
		Submission domain.Submission
	}
	// CallPoll requests the current status of JobID.
	CallPoll struct {
		Generation uint64
		JobID      string
		Initial    bool
	}
	// StartTimers acquires the poll, deadline and elapsed timers together.
	StartTimers struct{ Generation uint64 }
	// StopTimers releases every timer and in-flight request of the scope.
	StopTimers struct{}
	// CancelSubmit aborts an in-flight submit request.
	CancelSubmit struct{}
	// Notify shows a transient message to the user.
	Notify struct {
		Level   Level
		Message string
	}
)

func (CallSubmit) effect()   {}
func (CallPoll) effect()     {}
func (StartTimers) effect()  {}
func (StopTimers) effect()   {}
func (CancelSubmit) effect() {}
func (Notify) effect()       {}

// Machine is the pure job lifecycle state machine. It performs no I/O and
// never reads the clock; all time arrives through inputs.
type Machine struct {
	state      State
	jobTimeout time.Duration
}

// NewMachine creates an idle machine. jobTimeout only shapes the timeout
// message; the controller owns the deadline timer.
func NewMachine(jobTimeout time.Duration) *Machine {
	return &Machine{state: State{Phase: PhaseIdle}, jobTimeout: jobTimeout}
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

// Apply feeds one input and returns the effects to perform. Inputs from
// an older generation, or that do not fit the current phase, are ignored.
func (m *Machine) Apply(in Input) ([]Effect, error) {
	switch in := in.(type) {
	case SubmitRequested:
		return m.submit(in)
	case SubmitSucceeded:
		if !m.accepts(in.Generation, PhaseSubmitting) {
			return nil, nil
		}
		return m.submitted(in)
	case SubmitFailed:
		if !m.accepts(in.Generation, PhaseSubmitting) {
			return nil, nil
		}
		m.moveTo(PhaseIdle)
		return []Effect{Notify{Level: LevelError, Message: remote.UserMessage(in.Err, MessageRequestFailed)}}, nil
	case PollDue:
		if !m.accepts(in.Generation, PhasePolling) {
			return nil, nil
		}
		return []Effect{CallPoll{Generation: m.state.Generation, JobID: m.state.Job.ID}}, nil
	case PollSucceeded:
		if !m.accepts(in.Generation, PhasePolling) {
			return nil, nil
		}
		return m.polled(in.Result), nil
	case PollFailed:
		if !m.accepts(in.Generation, PhasePolling) {
			return nil, nil
		}
		return m.pollFailed(in), nil
	case DeadlineReached:
		if !m.accepts(in.Generation, PhasePolling) {
			return nil, nil
		}
		m.state.Job.Status = domain.JobStatusTimeout
		m.state.ErrorMessage = fmt.Sprintf(messageTimeoutPattern, formatTimeout(m.jobTimeout))
		m.moveTo(PhaseTimedOut)
		return []Effect{StopTimers{}}, nil
	case ElapsedTick:
		if !m.accepts(in.Generation, PhasePolling) {
			return nil, nil
		}
		if elapsed := in.Now.Sub(m.state.Job.StartedAt).Truncate(time.Second); elapsed > m.state.Elapsed {
			m.state.Elapsed = elapsed
		}
		return nil, nil
	case ResetRequested:
		return m.reset(), nil
	default:
		return nil, fmt.Errorf("unsupported input %T", in)
	}
}

func (m *Machine) submit(in SubmitRequested) ([]Effect, error) {
	if isRunning(m.state.Phase) {
		return nil, ErrJobAlreadyRunning
	}
	if m.state.Phase.Terminal() {
		return nil, ErrResetRequired
	}
	sub, err := ValidateSubmission(in.Submission)
	if err != nil {
		return nil, err
	}

	m.state = State{
		Phase:      m.state.Phase,
		Generation: m.state.Generation + 1,
		Submission: sub,
	}
	m.moveTo(PhaseSubmitting)
	return []Effect{CallSubmit{Generation: m.state.Generation, Submission: sub}}, nil
}

func (m *Machine) submitted(in SubmitSucceeded) ([]Effect, error) {
	m.state.Job = domain.Job{
		ID:        in.JobID,
		Status:    domain.JobStatusQueued,
		StartedAt: in.At,
	}
	m.state.Elapsed = 0
	m.state.Asset = in.Asset
	m.moveTo(PhasePolling)

	gen := m.state.Generation
	return []Effect{
		StartTimers{Generation: gen},
		Notify{Level: LevelSuccess, Message: MessageSubmitted},
		CallPoll{Generation: gen, JobID: in.JobID, Initial: true},
	}, nil
}

func (m *Machine) polled(row *domain.PollResult) []Effect {
	if row == nil {
		return nil
	}

	// Each snapshot replaces the previous one wholesale.
	m.state.Job.Status = row.Status
	m.state.Job.TranscriptURL = row.TranscriptURL
	m.state.Job.MappingURL = row.MappingURL

	switch {
	case row.Error:
		m.state.ErrorMessage = MessageFailed
		m.moveTo(PhaseErrored)
		return []Effect{StopTimers{}}
	case row.Status == domain.JobStatusDone:
		m.moveTo(PhaseDone)
		return []Effect{StopTimers{}, Notify{Level: LevelSuccess, Message: MessageComplete}}
	default:
		return nil
	}
}

func (m *Machine) pollFailed(in PollFailed) []Effect {
	var cfgErr *remote.ConfigError
	if errors.As(in.Err, &cfgErr) {
		m.state.ErrorMessage = cfgErr.Message
		m.moveTo(PhaseErrored)
		return []Effect{StopTimers{}}
	}
	if in.Initial {
		return nil
	}
	return []Effect{Notify{Level: LevelWarning, Message: remote.UserMessage(in.Err, remote.MessageStatusRetry)}}
}

func (m *Machine) reset() []Effect {
	var effects []Effect
	switch m.state.Phase {
	case PhaseSubmitting:
		effects = append(effects, CancelSubmit{})
	case PhasePolling:
		effects = append(effects, StopTimers{})
	}
	m.state = State{Phase: m.state.Phase, Generation: m.state.Generation + 1}
	m.moveTo(PhaseIdle)
	return effects
}

func (m *Machine) accepts(gen uint64, phase Phase) bool {
	return gen == m.state.Generation && m.state.Phase == phase
}

func (m *Machine) moveTo(phase Phase) {
	if phase == m.state.Phase {
		return
	}
	if !isValidTransition(m.state.Phase, phase) {
		panic(fmt.Sprintf("invalid transition: %s -> %s", m.state.Phase, phase))
	}
	m.state.Phase = phase
}

// isRunning checks if a phase owns live requests or timers.
func isRunning(phase Phase) bool {
	return phase == PhaseSubmitting || phase == PhasePolling
}

// isValidTransition enforces the allowed lifecycle edges.
func isValidTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseSubmitting
	case PhaseSubmitting:
		return to == PhasePolling || to == PhaseIdle
	case PhasePolling:
		return to == PhaseDone || to == PhaseErrored || to == PhaseTimedOut || to == PhaseIdle
	case PhaseDone, PhaseErrored, PhaseTimedOut:
		return to == PhaseIdle
	default:
		return false
	}
}
