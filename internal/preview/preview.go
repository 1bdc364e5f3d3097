// Package preview loads a result document for in-app display. A newer load
// always supersedes an older one, and the detected reading direction can be
// overridden by the user.
package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"episode-mapper/internal/direction"
	"episode-mapper/internal/remote"
)

// ErrSuperseded is returned by a Load that a newer Load replaced.
var ErrSuperseded = errors.New("load superseded")

// LoadState is the lifecycle of one preview.
type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateReady   LoadState = "ready"
	StateError   LoadState = "error"
)

// Downloader fetches a result link.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (remote.Payload, error)
}

// Decoder turns a downloaded payload into display text.
type Decoder func(remote.Payload) (string, error)

// Options describes one kind of document.
type Options struct {
	// Kind names the document in messages, e.g. "transcript".
	Kind string
	// Rewrite maps the result link to the URL actually fetched.
	Rewrite func(string) string
	Decode  Decoder
	// Render turns decoded text into HTML for the desktop preview.
	Render func(string) (string, error)
}

// Snapshot is a copy of the viewer state for rendering.
type Snapshot struct {
	Kind           string              `json:"kind"`
	URL            string              `json:"url"`
	State          LoadState           `json:"state"`
	Text           string              `json:"text,omitempty"`
	HTML           string              `json:"html,omitempty"`
	Error          string              `json:"error,omitempty"`
	Mode           direction.Mode      `json:"mode"`
	Detected       direction.Direction `json:"detected"`
	Direction      direction.Direction `json:"direction"`
	DirectionLabel string              `json:"directionLabel"`
	CanCopy        bool                `json:"canCopy"`
}

// Viewer holds one document preview.
type Viewer struct {
	dl   Downloader
	opts Options

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	url      string
	state    LoadState
	text     string
	html     string
	errMsg   string
	detected direction.Direction
	mode     direction.Mode
}

// New creates an idle viewer.
func New(dl Downloader, opts Options) *Viewer {
	if opts.Kind == "" {
		opts.Kind = "document"
	}
	return &Viewer{
		dl:       dl,
		opts:     opts,
		state:    StateIdle,
		detected: direction.LTR,
		mode:     direction.ModeAuto,
	}
}

// Load fetches rawURL, cancelling any load still in flight. An empty URL
// leaves the viewer idle.
func (v *Viewer) Load(ctx context.Context, rawURL string) (Snapshot, error) {
	rawURL = strings.TrimSpace(rawURL)

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.seq++
	seq := v.seq
	v.url = rawURL
	v.errMsg = ""
	if rawURL == "" {
		v.state = StateIdle
		v.clearLocked()
		snap := v.snapshotLocked()
		v.mu.Unlock()
		return snap, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.state = StateLoading
	v.mu.Unlock()
	defer cancel()

	target := rawURL
	if v.opts.Rewrite != nil {
		target = v.opts.Rewrite(rawURL)
	}

	text, err := v.fetch(ctx, target)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.seq {
		return v.snapshotLocked(), ErrSuperseded
	}
	v.cancel = nil
	if err != nil {
		v.state = StateError
		v.clearLocked()
		v.errMsg = v.message(err)
		return v.snapshotLocked(), err
	}

	v.state = StateReady
	v.text = text
	v.html = ""
	if v.opts.Render != nil {
		// Plain text still shows when rendering fails.
		if html, rerr := v.opts.Render(text); rerr == nil {
			v.html = html
		}
	}
	v.detected = direction.Classify(text)
	return v.snapshotLocked(), nil
}

// Reload fetches the current URL again.
func (v *Viewer) Reload(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	url := v.url
	v.mu.Unlock()
	return v.Load(ctx, url)
}

// Cancel aborts an in-flight load and returns the viewer to idle.
func (v *Viewer) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.seq++
	v.url = ""
	v.clearLocked()
	v.errMsg = ""
	v.state = StateIdle
}

// clearLocked drops the document and its detected direction.
func (v *Viewer) clearLocked() {
	v.text = ""
	v.html = ""
	v.detected = direction.LTR
}

// SetMode overrides the display direction.
func (v *Viewer) SetMode(mode direction.Mode) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
	return v.snapshotLocked()
}

// CycleMode steps auto, ltr, rtl and back to auto.
func (v *Viewer) CycleMode() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = v.mode.Next()
	return v.snapshotLocked()
}

// Snapshot returns the current state.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *Viewer) fetch(ctx context.Context, target string) (string, error) {
	payload, err := v.dl.Download(ctx, target)
	if err != nil {
		return "", err
	}
	if v.opts.Decode == nil {
		return string(payload.Body), nil
	}
	return v.opts.Decode(payload)
}

func (v *Viewer) message(err error) string {
	var dlErr *remote.DownloadError
	if errors.As(err, &dlErr) {
		return fmt.Sprintf("Failed to download %s (%d)", v.opts.Kind, dlErr.StatusCode)
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return fmt.Sprintf("Unable to load %s", v.opts.Kind)
}

func (v *Viewer) snapshotLocked() Snapshot {
	return Snapshot{
		Kind:           v.opts.Kind,
		URL:            v.url,
		State:          v.state,
		Text:           v.text,
		HTML:           v.html,
		Error:          v.errMsg,
		Mode:           v.mode,
		Detected:       v.detected,
		Direction:      direction.Resolve(v.mode, v.detected),
		DirectionLabel: direction.Label(v.mode, v.detected),
		CanCopy:        v.state == StateReady && v.text != "",
	}
}

// UserError carries a message fit to show as-is.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }
