package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"golang.org/x/sync/errgroup"

	"episode-mapper/internal/config"
	"episode-mapper/internal/diagnostics"
	"episode-mapper/internal/direction"
	"episode-mapper/internal/domain"
	"episode-mapper/internal/jobs"
	"episode-mapper/internal/mapping"
	"episode-mapper/internal/preview"
	"episode-mapper/internal/remote"
	"episode-mapper/internal/transcript"
	"episode-mapper/internal/view"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	eventJob     = "job:event"
	eventPreview = "preview:updated"
)

var spreadsheetDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Excel workbook",
		Pattern:     "*.xlsx",
	},
}

// App wires configuration, the job controller, previews and UI runtime
// callbacks.
type App struct {
	Store        config.Store
	SettingsPath string
	assets       fs.FS
	checker      *diagnostics.Checker
	logger       *slog.Logger
	events       *jobs.EventBus
	newClient    func(config.Config) jobClient

	mu          sync.Mutex
	cfg         config.Config
	jobs        *jobs.Controller
	stopJobs    context.CancelFunc
	client      jobClient
	transcript  *preview.Viewer
	mapping     *preview.Viewer
	diagnostics domain.DiagnosticReport
	fieldErrors map[string]string
	runtimeCtx  context.Context
}

// jobClient is everything the app needs from the remote service.
type jobClient interface {
	jobs.JobClient
	preview.Downloader
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewYAMLStore(config.DefaultSettingsPath())
	cfg, err := config.Load(store, ".env")
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	app := newApp(cfg, store, store.Path(), func(c config.Config) jobClient { return remote.NewClient(c) }, logger)
	app.assets = assets
	app.checker = diagnostics.NewChecker()
	app.refreshDiagnostics(context.Background())
	return app, nil
}

func newApp(cfg config.Config, store config.Store, settingsPath string, newClient func(config.Config) jobClient, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Store:        store,
		SettingsPath: settingsPath,
		logger:       logger,
		events:       jobs.NewEventBus(1000),
		newClient:    newClient,
	}
	a.events.Listen(a.onJobEvent)
	a.mu.Lock()
	a.startLocked(cfg)
	a.mu.Unlock()
	return a
}

// startLocked builds the client, controller and viewers for cfg.
func (a *App) startLocked(cfg config.Config) {
	a.cfg = cfg
	a.client = a.newClient(cfg)
	a.transcript = transcript.NewViewer(a.client)
	a.mapping = mapping.NewViewer(a.client)
	a.jobs = jobs.NewController(cfg, a.client, a.events, jobs.WithLogger(a.logger))

	ctx, cancel := context.WithCancel(context.Background())
	a.stopJobs = cancel
	go func(ctrl *jobs.Controller) {
		if err := ctrl.Run(ctx); err != nil {
			a.logger.Error("job controller stopped", "error", err)
		}
	}(a.jobs)
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Episode Mapper",
		Width:       960,
		Height:      820,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// Shutdown stops the job controller and drops the runtime context.
func (a *App) Shutdown(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = nil
	if a.stopJobs != nil {
		a.stopJobs()
		a.stopJobs = nil
	}
}

// GetSettings returns the configuration the app is running with.
func (a *App) GetSettings() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// SaveSettings validates and persists settings, then restarts the
// controller with them. It is refused while a job is in progress.
func (a *App) SaveSettings(cfg config.Config) (config.Config, error) {
	cfg = normalizeSettings(cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	a.mu.Lock()
	phase := a.jobs.Snapshot().Phase
	a.mu.Unlock()
	if phase == jobs.PhaseSubmitting || phase == jobs.PhasePolling {
		return config.Config{}, jobs.ErrJobAlreadyRunning
	}

	if err := a.Store.Save(cfg); err != nil {
		return config.Config{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	if a.stopJobs != nil {
		a.stopJobs()
	}
	a.startLocked(cfg)
	a.mu.Unlock()

	a.refreshDiagnostics(context.Background())
	return cfg, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.diagnostics
}

// RefreshDiagnostics reruns configuration checks.
func (a *App) RefreshDiagnostics() domain.DiagnosticReport {
	return a.refreshDiagnostics(context.Background())
}

func (a *App) refreshDiagnostics(ctx context.Context) domain.DiagnosticReport {
	if a.checker == nil {
		return domain.DiagnosticReport{}
	}
	cfg := a.GetSettings()
	report := a.checker.Run(ctx, cfg, filepath.Dir(a.SettingsPath))

	a.mu.Lock()
	a.diagnostics = report
	a.mu.Unlock()
	return report
}

// SubmitJob validates the form and starts a job. Validation problems are
// returned inside the view rather than as an error.
func (a *App) SubmitJob(videoURL, episodeName string) (view.View, error) {
	sub := domain.Submission{VideoURL: videoURL, EpisodeName: episodeName}
	err := a.controller().Submit(context.Background(), sub)

	var vErr *jobs.ValidationError
	switch {
	case errors.As(err, &vErr):
		a.setFieldErrors(vErr.Fields)
		return a.render(map[string]string{
			jobs.FieldVideoURL:    videoURL,
			jobs.FieldEpisodeName: episodeName,
		}), nil
	case err != nil:
		return view.View{}, err
	}

	a.setFieldErrors(nil)
	a.resetPreviews()
	return a.render(nil), nil
}

// ResetJob discards the current job and returns to the form.
func (a *App) ResetJob() (view.View, error) {
	if err := a.controller().Reset(context.Background()); err != nil {
		return view.View{}, err
	}
	a.setFieldErrors(nil)
	a.resetPreviews()
	return a.render(nil), nil
}

// CurrentView renders the active screen. draft carries unsubmitted form
// input so field values survive a re-render.
func (a *App) CurrentView(draft map[string]string) view.View {
	return a.render(draft)
}

// CurrentJob returns the job snapshot.
func (a *App) CurrentJob() jobs.Snapshot {
	return a.controller().Snapshot()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// LoadTranscript fetches the transcript preview for the finished job.
func (a *App) LoadTranscript() (preview.Snapshot, error) {
	return a.loadPreview(context.Background(), a.transcriptViewer(), a.CurrentJob().Job.TranscriptURL)
}

// LoadMapping fetches the mapping preview for the finished job.
func (a *App) LoadMapping() (preview.Snapshot, error) {
	return a.loadPreview(context.Background(), a.mappingViewer(), a.CurrentJob().Job.MappingURL)
}

// LoadPreviews fetches transcript and mapping together.
func (a *App) LoadPreviews() error {
	return a.loadPreviews(context.Background())
}

func (a *App) loadPreviews(ctx context.Context) error {
	job := a.CurrentJob().Job
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := a.loadPreview(ctx, a.transcriptViewer(), job.TranscriptURL)
		return err
	})
	g.Go(func() error {
		_, err := a.loadPreview(ctx, a.mappingViewer(), job.MappingURL)
		return err
	})
	return g.Wait()
}

func (a *App) loadPreview(ctx context.Context, v *preview.Viewer, link string) (preview.Snapshot, error) {
	snap, err := v.Load(ctx, link)
	if errors.Is(err, preview.ErrSuperseded) {
		return v.Snapshot(), nil
	}
	if err != nil {
		a.logger.Warn("preview load failed", "kind", snap.Kind, "error", err)
	}
	a.emit(eventPreview, snap)
	return snap, err
}

// GetTranscript returns the transcript preview state.
func (a *App) GetTranscript() preview.Snapshot { return a.transcriptViewer().Snapshot() }

// GetMapping returns the mapping preview state.
func (a *App) GetMapping() preview.Snapshot { return a.mappingViewer().Snapshot() }

// SetTranscriptDirection overrides the transcript reading direction.
func (a *App) SetTranscriptDirection(mode string) preview.Snapshot {
	return a.transcriptViewer().SetMode(direction.ParseMode(mode))
}

// SetMappingDirection overrides the mapping reading direction.
func (a *App) SetMappingDirection(mode string) preview.Snapshot {
	return a.mappingViewer().SetMode(direction.ParseMode(mode))
}

// CopyTranscript puts the transcript text on the clipboard.
func (a *App) CopyTranscript() error {
	return a.copyPreview(a.transcriptViewer(), "Transcript copied to clipboard", "Failed to copy transcript")
}

// CopyMapping puts the mapping markdown on the clipboard.
func (a *App) CopyMapping() error {
	return a.copyPreview(a.mappingViewer(), "Mapping copied to clipboard", "Failed to copy mapping")
}

func (a *App) copyPreview(v *preview.Viewer, okMsg, failMsg string) error {
	snap := v.Snapshot()
	if !snap.CanCopy {
		return fmt.Errorf("%s is not loaded", snap.Kind)
	}
	ctx, err := a.runtimeContext()
	if err != nil {
		return err
	}
	if err := wailsruntime.ClipboardSetText(ctx, snap.Text); err != nil {
		a.toast(jobs.LevelError, failMsg)
		return fmt.Errorf("copy %s: %w", snap.Kind, err)
	}
	a.toast(jobs.LevelSuccess, okMsg)
	return nil
}

// OpenResult opens a result link in the system browser.
func (a *App) OpenResult(actionID string) error {
	v := a.render(nil)
	action, ok := v.Find(actionID)
	if !ok || action.URL == "" {
		return fmt.Errorf("no link for %q", actionID)
	}
	ctx, err := a.runtimeContext()
	if err != nil {
		return err
	}
	wailsruntime.BrowserOpenURL(ctx, action.URL)
	return nil
}

// ExportMappingXLSX asks for a destination and writes the mapping tables
// to it. An empty path means the dialog was cancelled.
func (a *App) ExportMappingXLSX() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	name := safeFileName(a.CurrentJob().Submission.EpisodeName)
	path, err := wailsruntime.SaveFileDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           "Export mapping",
		DefaultFilename: name + ".xlsx",
		Filters:         spreadsheetDialogFilter,
	})
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if err := a.exportMappingTo(path); err != nil {
		return "", err
	}
	return path, nil
}

func (a *App) exportMappingTo(path string) error {
	snap := a.mappingViewer().Snapshot()
	if snap.State != preview.StateReady {
		return fmt.Errorf("mapping is not loaded")
	}

	var buf bytes.Buffer
	sheets, err := mapping.ExportXLSX(snap.Text, snap.Direction, &buf)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	a.toast(jobs.LevelSuccess, fmt.Sprintf("Exported %d table(s) to %s", sheets, filepath.Base(path)))
	return nil
}

// onJobEvent forwards bus events to the frontend and starts inline
// previews once a job completes.
func (a *App) onJobEvent(event jobs.Event) {
	a.emit(eventJob, event)

	if event.Type != jobs.EventTypeResult || a.GetSettings().ResultMode != config.ResultModeInline {
		return
	}
	go func() {
		if err := a.loadPreviews(context.Background()); err != nil {
			a.logger.Warn("inline previews incomplete", "job_id", event.JobID, "error", err)
		}
	}()
}

// emit sends a runtime push notification when the UI is attached.
func (a *App) emit(name string, payload interface{}) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, name, payload)
	}
}

func (a *App) toast(level jobs.Level, message string) {
	a.events.Publish(jobs.Event{Type: jobs.EventTypeToast, Level: level, Message: message})
}

func (a *App) render(draft map[string]string) view.View {
	a.mu.Lock()
	ctrl := a.jobs
	opts := view.Options{
		ResultMode:  a.cfg.ResultMode,
		Values:      draft,
		FieldErrors: a.fieldErrors,
	}
	a.mu.Unlock()
	return view.Render(ctrl.Snapshot(), opts)
}

func (a *App) setFieldErrors(fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fieldErrors = fields
}

func (a *App) resetPreviews() {
	a.transcriptViewer().Cancel()
	a.mappingViewer().Cancel()
}

func (a *App) controller() *jobs.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.jobs
}

func (a *App) transcriptViewer() *preview.Viewer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript
}

func (a *App) mappingViewer() *preview.Viewer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mapping
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and fills unset timings with defaults.
func normalizeSettings(cfg config.Config) config.Config {
	defaults := config.Defaults()
	cfg.SubmitEndpoint = strings.TrimSpace(cfg.SubmitEndpoint)
	cfg.StatusEndpoint = strings.TrimSpace(cfg.StatusEndpoint)
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = defaults.JobTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.ResultMode == "" {
		cfg.ResultMode = defaults.ResultMode
	}
	return cfg
}

// safeFileName turns an episode name into a file name stem.
func safeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "mapping"
	}
	return name
}
