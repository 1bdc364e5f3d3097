package preview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"episode-mapper/internal/direction"
	"episode-mapper/internal/remote"
)

type fakeDownloader struct {
	calls   chan string
	release map[string]chan struct{}
	bodies  map[string]string
	errs    map[string]error
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{
		calls:   make(chan string, 10),
		release: map[string]chan struct{}{},
		bodies:  map[string]string{},
		errs:    map[string]error{},
	}
}

func (d *fakeDownloader) Download(ctx context.Context, rawURL string) (remote.Payload, error) {
	d.calls <- rawURL
	if gate, ok := d.release[rawURL]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return remote.Payload{}, ctx.Err()
		}
	}
	if err := d.errs[rawURL]; err != nil {
		return remote.Payload{}, err
	}
	return remote.Payload{URL: rawURL, Body: []byte(d.bodies[rawURL]), MIMEType: "text/plain; charset=utf-8"}, nil
}

// TestLoadDetectsDirection checks a ready preview classifies its text.
func TestLoadDetectsDirection(t *testing.T) {
	dl := newFakeDownloader()
	dl.bodies["https://x/rtl"] = "\u05e9\u05dc\u05d5\u05dd world"
	v := New(dl, Options{Kind: "mapping"})

	snap, err := v.Load(context.Background(), "https://x/rtl")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.State != StateReady || !snap.CanCopy {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Direction != direction.RTL || snap.DirectionLabel != "Auto (RTL)" {
		t.Fatalf("direction = %s label = %q", snap.Direction, snap.DirectionLabel)
	}

	snap = v.SetMode(direction.ModeLTR)
	if snap.Direction != direction.LTR || snap.DirectionLabel != "Set to LTR" {
		t.Fatalf("override = %s %q", snap.Direction, snap.DirectionLabel)
	}
}

// TestLoadRewritesURL checks the fetched URL passes through Rewrite.
func TestLoadRewritesURL(t *testing.T) {
	dl := newFakeDownloader()
	v := New(dl, Options{Rewrite: func(s string) string { return s + "/export" }})

	if _, err := v.Load(context.Background(), "https://x/doc"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := <-dl.calls; got != "https://x/doc/export" {
		t.Fatalf("fetched %q", got)
	}
	if v.Snapshot().URL != "https://x/doc" {
		t.Fatalf("url = %q, want original link", v.Snapshot().URL)
	}
}

// TestLoadReportsHTTPStatus checks the non-2xx message.
func TestLoadReportsHTTPStatus(t *testing.T) {
	dl := newFakeDownloader()
	dl.errs["https://x/doc"] = &remote.DownloadError{StatusCode: 404}
	v := New(dl, Options{Kind: "transcript"})

	snap, err := v.Load(context.Background(), "https://x/doc")
	if err == nil {
		t.Fatal("expected error")
	}
	if snap.State != StateError || snap.Error != "Failed to download transcript (404)" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.CanCopy {
		t.Fatal("copy should be disabled on error")
	}
}

// TestLoadDecoderUserError surfaces decoder messages verbatim.
func TestLoadDecoderUserError(t *testing.T) {
	dl := newFakeDownloader()
	v := New(dl, Options{Kind: "transcript", Decode: func(remote.Payload) (string, error) {
		return "", &UserError{Message: "Link opened a sign-in page"}
	}})

	snap, _ := v.Load(context.Background(), "https://x/doc")
	if snap.Error != "Link opened a sign-in page" {
		t.Fatalf("error = %q", snap.Error)
	}
}

// TestNewerLoadSupersedesOlder checks the first request is cancelled and ignored.
func TestNewerLoadSupersedesOlder(t *testing.T) {
	dl := newFakeDownloader()
	dl.release["https://x/slow"] = make(chan struct{})
	dl.bodies["https://x/slow"] = "old"
	dl.bodies["https://x/fast"] = "new"
	v := New(dl, Options{})

	firstErr := make(chan error, 1)
	go func() {
		_, err := v.Load(context.Background(), "https://x/slow")
		firstErr <- err
	}()
	<-dl.calls

	snap, err := v.Load(context.Background(), "https://x/fast")
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if snap.Text != "new" {
		t.Fatalf("text = %q, want new", snap.Text)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first Load() error = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first load was not cancelled")
	}
	if got := v.Snapshot(); got.Text != "new" || got.State != StateReady {
		t.Fatalf("snapshot = %+v", got)
	}
}

// TestEmptyURLStaysIdle checks nothing is fetched without a link.
func TestEmptyURLStaysIdle(t *testing.T) {
	dl := newFakeDownloader()
	v := New(dl, Options{})

	snap, err := v.Load(context.Background(), "  ")
	if err != nil || snap.State != StateIdle {
		t.Fatalf("snapshot = %+v err = %v", snap, err)
	}
	if len(dl.calls) != 0 {
		t.Fatal("downloader should not be called")
	}
}

// TestCycleMode walks the override modes.
func TestCycleMode(t *testing.T) {
	v := New(newFakeDownloader(), Options{})
	var labels []string
	for i := 0; i < 3; i++ {
		labels = append(labels, v.CycleMode().DirectionLabel)
	}
	if got := strings.Join(labels, ","); got != "Set to LTR,Set to RTL,Auto (LTR)" {
		t.Fatalf("labels = %s", got)
	}
}

// TestFailedLoadForgetsDirection checks an error after an RTL document
// falls back to the LTR auto label.
func TestFailedLoadForgetsDirection(t *testing.T) {
	dl := newFakeDownloader()
	dl.bodies["https://x/rtl"] = "\u05e9\u05dc\u05d5\u05dd"
	dl.errs["https://x/gone"] = &remote.DownloadError{StatusCode: 404}
	v := New(dl, Options{Kind: "mapping"})

	if snap, _ := v.Load(context.Background(), "https://x/rtl"); snap.Detected != direction.RTL {
		t.Fatalf("detected = %s, want rtl", snap.Detected)
	}
	snap, _ := v.Load(context.Background(), "https://x/gone")
	if snap.Detected != direction.LTR || snap.DirectionLabel != "Auto (LTR)" {
		t.Fatalf("after error detected = %s label = %q", snap.Detected, snap.DirectionLabel)
	}
}

// TestCancelForgetsDirection checks Cancel resets the detected direction.
func TestCancelForgetsDirection(t *testing.T) {
	dl := newFakeDownloader()
	dl.bodies["https://x/rtl"] = "\u05e9\u05dc\u05d5\u05dd"
	v := New(dl, Options{})

	if _, err := v.Load(context.Background(), "https://x/rtl"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	v.Cancel()
	if snap := v.Snapshot(); snap.Detected != direction.LTR || snap.DirectionLabel != "Auto (LTR)" {
		t.Fatalf("after cancel = %+v", snap)
	}
}

// TestLoadRendersHTML checks Render output rides along with the text and a
// render failure keeps the plain text.
func TestLoadRendersHTML(t *testing.T) {
	dl := newFakeDownloader()
	dl.bodies["https://x/doc"] = "hello"
	v := New(dl, Options{Render: func(s string) (string, error) { return "<p>" + s + "</p>", nil }})

	snap, err := v.Load(context.Background(), "https://x/doc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.HTML != "<p>hello</p>" || snap.Text != "hello" {
		t.Fatalf("snapshot = %+v", snap)
	}

	broken := New(dl, Options{Render: func(string) (string, error) { return "", errors.New("bad markup") }})
	snap, err = broken.Load(context.Background(), "https://x/doc")
	if err != nil || snap.State != StateReady || snap.HTML != "" || snap.Text != "hello" {
		t.Fatalf("snapshot = %+v err = %v", snap, err)
	}
}
