package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"episode-mapper/internal/config"
	"episode-mapper/internal/domain"
)

// ErrControllerStopped is returned when the controller loop is not running.
var ErrControllerStopped = errors.New("job controller stopped")

// JobClient is the remote side of a job.
type JobClient interface {
	Submit(ctx context.Context, sub domain.Submission) (string, error)
	PollStatus(ctx context.Context, jobID string) (*domain.PollResult, error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithAssetPicker overrides how the waiting-screen asset is chosen.
func WithAssetPicker(pick func([]string) string) Option {
	return func(c *Controller) { c.pickAsset = pick }
}

type request struct {
	in    Input
	reply chan error
}

// Controller drives the Machine from a single goroutine. Every input,
// whether from the UI, a timer or a finished request, is applied in order
// on that goroutine.
type Controller struct {
	client       JobClient
	clock        Clock
	bus          *EventBus
	logger       *slog.Logger
	pollInterval time.Duration
	jobTimeout   time.Duration
	assets       []string
	pickAsset    func([]string) string
	warnings     *rate.Limiter

	requests chan request
	done     chan struct{}
	startMu  sync.Mutex
	started  bool

	mu      sync.RWMutex
	machine *Machine

	// Owned by the loop goroutine.
	runCtx       context.Context
	scope        *timerScope
	cancelSubmit context.CancelFunc
}

// NewController wires a controller for cfg. Call Run before submitting.
func NewController(cfg config.Config, client JobClient, bus *EventBus, opts ...Option) *Controller {
	if bus == nil {
		bus = NewEventBus(0)
	}
	c := &Controller{
		client:       client,
		clock:        SystemClock{},
		bus:          bus,
		logger:       slog.Default(),
		pollInterval: cfg.PollInterval,
		jobTimeout:   cfg.JobTimeout,
		assets:       append([]string(nil), cfg.Assets...),
		pickAsset:    lo.Sample[string],
		requests:     make(chan request, 64),
		done:         make(chan struct{}),
		machine:      NewMachine(cfg.JobTimeout),
	}
	if c.pollInterval <= 0 {
		c.pollInterval = config.DefaultPollInterval
	}
	if c.jobTimeout <= 0 {
		c.jobTimeout = config.DefaultJobTimeout
		c.machine = NewMachine(c.jobTimeout)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.warnings = rate.NewLimiter(rate.Every(c.pollInterval), 3)
	return c
}

// Events exposes the notification bus.
func (c *Controller) Events() *EventBus { return c.bus }

// Snapshot returns the current state with display fields derived.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.machine.State().Snapshot()
}

// Run processes inputs until ctx is cancelled. It may be called once.
func (c *Controller) Run(ctx context.Context) error {
	c.startMu.Lock()
	if c.started {
		c.startMu.Unlock()
		return errors.New("job controller already running")
	}
	c.started = true
	c.startMu.Unlock()

	c.runCtx = ctx
	defer close(c.done)
	defer c.releaseAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-c.requests:
			err := c.handle(req.in)
			if req.reply != nil {
				req.reply <- err
			}
		}
	}
}

// Submit validates sub and starts a new job. Invalid forms return a
// *ValidationError without contacting the remote service.
func (c *Controller) Submit(ctx context.Context, sub domain.Submission) error {
	sub, err := ValidateSubmission(sub)
	if err != nil {
		return err
	}
	return c.call(ctx, SubmitRequested{Submission: sub})
}

// Reset discards the current job, stopping its timers and requests.
func (c *Controller) Reset(ctx context.Context) error {
	return c.call(ctx, ResetRequested{})
}

func (c *Controller) call(ctx context.Context, in Input) error {
	reply := make(chan error, 1)
	select {
	case c.requests <- request{in: in, reply: reply}:
	case <-c.done:
		return ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues an input produced by a timer or request goroutine.
func (c *Controller) post(in Input) {
	select {
	case c.requests <- request{in: in}:
	case <-c.done:
	}
}

func (c *Controller) handle(in Input) error {
	c.mu.Lock()
	before := c.machine.State()
	effects, err := c.machine.Apply(in)
	after := c.machine.State()
	c.mu.Unlock()

	if err != nil {
		return err
	}

	for _, effect := range effects {
		c.perform(effect)
	}
	c.publishChanges(before, after)
	return nil
}

func (c *Controller) perform(effect Effect) {
	switch e := effect.(type) {
	case CallSubmit:
		c.startSubmit(e)
	case StartTimers:
		c.releaseScope()
		c.scope = c.acquireScope(e.Generation)
	case StopTimers:
		c.releaseScope()
	case CancelSubmit:
		if c.cancelSubmit != nil {
			c.cancelSubmit()
			c.cancelSubmit = nil
		}
	case CallPoll:
		c.startPoll(e)
	case Notify:
		c.notify(e)
	}
}

func (c *Controller) startSubmit(e CallSubmit) {
	ctx, cancel := context.WithCancel(c.runCtx)
	c.cancelSubmit = cancel
	c.logger.Info("submitting job", "episode", e.Submission.EpisodeName, "generation", e.Generation)

	go func() {
		defer cancel()
		jobID, err := c.client.Submit(ctx, e.Submission)
		if err != nil {
			c.logger.Warn("submit failed", "error", err, "generation", e.Generation)
			c.post(SubmitFailed{Generation: e.Generation, Err: err})
			return
		}
		c.post(SubmitSucceeded{
			Generation: e.Generation,
			JobID:      jobID,
			At:         c.clock.Now(),
			Asset:      c.pickAsset(c.assets),
		})
	}()
}

func (c *Controller) startPoll(e CallPoll) {
	if c.scope == nil {
		return
	}
	ctx := c.scope.ctx

	go func() {
		row, err := c.client.PollStatus(ctx, e.JobID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if e.Initial {
				c.logger.Debug("initial status check failed", "job_id", e.JobID, "error", err)
			} else {
				c.logger.Warn("status check failed", "job_id", e.JobID, "error", err)
			}
			c.post(PollFailed{Generation: e.Generation, Err: err, Initial: e.Initial})
			return
		}
		c.post(PollSucceeded{Generation: e.Generation, Result: row})
	}()
}

func (c *Controller) notify(n Notify) {
	if n.Level == LevelWarning && !c.warnings.AllowN(c.clock.Now(), 1) {
		c.logger.Debug("warning suppressed", "message", n.Message)
		return
	}
	c.bus.Publish(Event{
		Type:    EventTypeToast,
		JobID:   c.Snapshot().Job.ID,
		Level:   n.Level,
		Message: n.Message,
	})
}

func (c *Controller) publishChanges(before, after State) {
	if before.Phase == after.Phase && before.Job.Status == after.Job.Status && before.Generation == after.Generation {
		return
	}

	c.logger.Info("job state changed",
		"job_id", after.Job.ID,
		"phase", string(after.Phase),
		"status", string(after.Job.Status),
	)
	c.bus.Publish(Event{
		Type:    EventTypeStatus,
		JobID:   after.Job.ID,
		Phase:   after.Phase,
		Status:  after.Job.Status,
		Message: StatusLabel(after.Job.Status),
	})

	if before.Phase == after.Phase {
		return
	}
	switch after.Phase {
	case PhaseDone:
		c.bus.Publish(Event{
			Type:          EventTypeResult,
			JobID:         after.Job.ID,
			Phase:         after.Phase,
			Status:        after.Job.Status,
			TranscriptURL: after.Job.TranscriptURL,
			MappingURL:    after.Job.MappingURL,
		})
	case PhaseErrored, PhaseTimedOut:
		c.bus.Publish(Event{
			Type:    EventTypeError,
			JobID:   after.Job.ID,
			Phase:   after.Phase,
			Status:  after.Job.Status,
			Message: after.ErrorMessage,
		})
	}
}

// timerScope holds the poll ticker, the job deadline and the elapsed
// ticker. They are acquired and released together, and releasing the
// scope also cancels in-flight status requests.
type timerScope struct {
	ctx    context.Context
	cancel context.CancelFunc
	timers []Stopper
}

func (c *Controller) acquireScope(gen uint64) *timerScope {
	ctx, cancel := context.WithCancel(c.runCtx)
	return &timerScope{
		ctx:    ctx,
		cancel: cancel,
		timers: []Stopper{
			c.clock.Every(c.pollInterval, func() { c.post(PollDue{Generation: gen}) }),
			c.clock.AfterFunc(c.jobTimeout, func() { c.post(DeadlineReached{Generation: gen}) }),
			c.clock.Every(time.Second, func() { c.post(ElapsedTick{Generation: gen, Now: c.clock.Now()}) }),
		},
	}
}

func (s *timerScope) release() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.cancel()
}

func (c *Controller) releaseScope() {
	if c.scope != nil {
		c.scope.release()
		c.scope = nil
	}
}

func (c *Controller) releaseAll() {
	c.releaseScope()
	if c.cancelSubmit != nil {
		c.cancelSubmit()
		c.cancelSubmit = nil
	}
}
