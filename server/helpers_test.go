package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/config"
	"github.com/RyanBlaney/genesis-map/genesis"
	"github.com/RyanBlaney/genesis-map/palette"
)

type analyzeCall struct {
	path     string
	filename string
	opts     genesis.Options
	data     []byte
}

// fakeAnalyzer records calls and returns a small map. With release set it
// blocks until release is closed.
type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   []analyzeCall
	started chan string
	release chan struct{}
	err     error
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{started: make(chan string, 8)}
}

func (f *fakeAnalyzer) AnalyzeFile(ctx context.Context, path, filename string, opts genesis.Options) (*genesis.GenesisMap, error) {
	data, _ := os.ReadFile(path)
	f.mu.Lock()
	f.calls = append(f.calls, analyzeCall{path: path, filename: filename, opts: opts, data: data})
	f.mu.Unlock()
	f.started <- filename

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if opts.Progress != nil {
		opts.Progress(0.5, "halfway")
	}
	if f.err != nil {
		return nil, f.err
	}
	return genesis.Build(genesis.Parts{
		Filename:   filename,
		Duration:   10,
		SampleRate: 22050,
		AnalyzedAt: time.Now(),
		Effects:    testEffects(),
		MaxEffects: opts.MaxEffects,
	}), nil
}

func (f *fakeAnalyzer) lastCall(t *testing.T) analyzeCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("analyzer was not called")
	}
	return f.calls[len(f.calls)-1]
}

func testEffects() []compose.Effect {
	return []compose.Effect{
		{Type: compose.Solid, Layer: compose.Background, StartMs: 0, DurationMs: 10000, Intensity: 0.3, Colors: []palette.RGB{{0, 0, 255}}},
		{Type: compose.Pulse, Layer: compose.Rhythm, StartMs: 500, DurationMs: 400, Intensity: 0.8, Speed: 1, Colors: []palette.RGB{palette.White}},
		{Type: compose.Explosion, Layer: compose.Overlay, StartMs: 4000, DurationMs: 2000, Intensity: 1, Speed: 1, Colors: []palette.RGB{{255, 0, 0}}},
	}
}

func testServerConfig(t *testing.T) config.ServerConfig {
	cfg := config.Default().Server
	cfg.UploadDir = t.TempDir()
	cfg.MaxUploadBytes = 1 << 10
	return cfg
}

func newTestServer(t *testing.T, analyzer Analyzer, cfg config.ServerConfig) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg, analyzer, genesis.DefaultOptions(), compose.DefaultFirmwareConfig())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Jobs().Close()
	})
	return s, ts
}

// uploadRequest builds a multipart POST with content in the "file" field
func uploadRequest(t *testing.T, url, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
