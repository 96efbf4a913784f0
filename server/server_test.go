package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/genesis"
)

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func submit(t *testing.T, ts string, query, filename string, content []byte) Job {
	t.Helper()
	resp, err := http.DefaultClient.Do(uploadRequest(t, ts+"/analyze"+query, filename, content))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("POST /analyze = %d: %s", resp.StatusCode, body)
	}
	return decode[Job](t, resp)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, newFakeAnalyzer(), testServerConfig(t))

	resp := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" || body["version"] != "v4.0" {
		t.Errorf("health = %v", body)
	}
}

func TestAnalyzeLifecycle(t *testing.T) {
	fake := newFakeAnalyzer()
	s, ts := newTestServer(t, fake, testServerConfig(t))

	job := submit(t, ts.URL, "?extract_stems=true&max_effects=2", "My Song.MP3", []byte("audio bytes"))
	if job.ID == "" || job.Status != StatusPending || job.Filename != "My Song.MP3" || !job.Stems {
		t.Fatalf("queued job = %+v", job)
	}

	done, err := s.Jobs().Wait(waitCtx(t), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != StatusCompleted || done.Progress != 1 || done.ResultURL != "/result/"+job.ID || done.CompletedAt == nil {
		t.Errorf("finished job = %+v", done)
	}

	call := fake.lastCall(t)
	if call.filename != "My Song.MP3" || string(call.data) != "audio bytes" {
		t.Errorf("analyzer got %q with %q", call.filename, call.data)
	}
	if !strings.HasSuffix(call.path, ".mp3") || !call.opts.Stems || call.opts.MaxEffects != 2 {
		t.Errorf("analyzer call = %+v", call)
	}

	status := decode[Job](t, get(t, ts.URL+"/status/"+job.ID))
	if status.Status != StatusCompleted || status.Message != "Analysis complete" {
		t.Errorf("status = %+v", status)
	}

	resp := get(t, ts.URL+"/result/"+job.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result status = %d", resp.StatusCode)
	}
	result := decode[map[string]json.RawMessage](t, resp)
	var effects []map[string]any
	if err := json.Unmarshal(result["effects"], &effects); err != nil {
		t.Fatal(err)
	}
	if len(effects) != 2 {
		t.Errorf("result has %d effects, want 2", len(effects))
	}
}

func TestEffectsExports(t *testing.T) {
	s, ts := newTestServer(t, newFakeAnalyzer(), testServerConfig(t))
	job := submit(t, ts.URL, "", "track.wav", []byte("RIFF"))
	if _, err := s.Jobs().Wait(waitCtx(t), job.ID); err != nil {
		t.Fatal(err)
	}

	resp := get(t, ts.URL+"/effects/"+job.ID+".bin")
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("bin export = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	// the export carries every composed effect, not the truncated summary
	effects, err := compose.ReadBinary(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4+3*compose.RecordSize || len(effects) != 3 || effects[2].Type != compose.Explosion {
		t.Errorf("bin export has %d bytes, effects %+v", len(data), effects)
	}

	resp = get(t, ts.URL+"/effects/"+job.ID+".json")
	doc := decode[compose.FirmwareDocument](t, resp)
	if doc.LEDCount != 144 || doc.FPS != 60 || len(doc.Effects) != 3 {
		t.Errorf("json export = %+v", doc)
	}

	resp = get(t, ts.URL+"/effects/"+job.ID+".wav")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown export format = %d", resp.StatusCode)
	}
}

func TestResultTooEarly(t *testing.T) {
	fake := newFakeAnalyzer()
	fake.release = make(chan struct{})
	s, ts := newTestServer(t, fake, testServerConfig(t))

	job := submit(t, ts.URL, "", "slow.flac", []byte("x"))
	<-fake.started

	for _, path := range []string{"/result/" + job.ID, "/effects/" + job.ID + ".bin"} {
		resp := get(t, ts.URL+path)
		body := decode[map[string]string](t, resp)
		if resp.StatusCode != http.StatusTooEarly || !strings.Contains(body["error"], "processing") {
			t.Errorf("GET %s = %d %v", path, resp.StatusCode, body)
		}
	}

	close(fake.release)
	if _, err := s.Jobs().Wait(waitCtx(t), job.ID); err != nil {
		t.Fatal(err)
	}
	resp := get(t, ts.URL+"/result/"+job.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("result after completion = %d", resp.StatusCode)
	}
}

func TestFailedJob(t *testing.T) {
	fake := newFakeAnalyzer()
	fake.err = apperrors.NewCollaboratorError("ffmpeg", "load", errors.New("exit status 1"))
	s, ts := newTestServer(t, fake, testServerConfig(t))

	job := submit(t, ts.URL, "", "broken.ogg", []byte("x"))
	done, err := s.Jobs().Wait(waitCtx(t), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != StatusFailed || !strings.Contains(done.Error, "ffmpeg failed at load") {
		t.Errorf("failed job = %+v", done)
	}
	if done.Progress != 0.5 {
		t.Errorf("progress = %v, want the last reported fraction", done.Progress)
	}

	resp := get(t, ts.URL+"/result/"+job.ID)
	body := decode[map[string]string](t, resp)
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(body["error"], "ffmpeg") {
		t.Errorf("result of failed job = %d %v", resp.StatusCode, body)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	_, ts := newTestServer(t, newFakeAnalyzer(), testServerConfig(t))

	tests := []struct {
		name     string
		query    string
		filename string
		size     int
		want     int
	}{
		{"bad extension", "", "notes.txt", 10, http.StatusBadRequest},
		{"too large", "", "big.wav", 2 << 10, http.StatusRequestEntityTooLarge},
		{"bad stems flag", "?extract_stems=maybe", "a.wav", 10, http.StatusBadRequest},
		{"negative max effects", "?max_effects=-3", "a.wav", 10, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadRequest(t, ts.URL+"/analyze"+tt.query, tt.filename, bytes.Repeat([]byte{1}, tt.size))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			body := decode[map[string]string](t, resp)
			if resp.StatusCode != tt.want || body["error"] == "" {
				t.Errorf("status = %d (%v), want %d", resp.StatusCode, body, tt.want)
			}
		})
	}

	resp, err := http.Post(ts.URL+"/analyze", "text/plain", strings.NewReader("not a form"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-multipart body = %d", resp.StatusCode)
	}
}

func TestUnknownJob(t *testing.T) {
	_, ts := newTestServer(t, newFakeAnalyzer(), testServerConfig(t))

	for _, path := range []string{"/status/nope", "/result/nope", "/effects/nope.bin"} {
		resp := get(t, ts.URL+path)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/job/nope", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("DELETE unknown job = %d", resp.StatusCode)
	}
}

func TestDeleteJob(t *testing.T) {
	fake := newFakeAnalyzer()
	s, ts := newTestServer(t, fake, testServerConfig(t))

	job := submit(t, ts.URL, "", "gone.wav", []byte("x"))
	if _, err := s.Jobs().Wait(waitCtx(t), job.ID); err != nil {
		t.Fatal(err)
	}
	upload := fake.lastCall(t).path

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/job/"+job.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE = %d", resp.StatusCode)
	}
	if _, err := s.Jobs().Get(job.ID); !errors.Is(err, apperrors.ErrJobNotFound) {
		t.Errorf("deleted job lookup error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(upload); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("upload %s was not removed", upload)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	fake := newFakeAnalyzer()
	fake.release = make(chan struct{})
	cfg := testServerConfig(t)
	cfg.MaxConcurrentJobs = 1
	s, ts := newTestServer(t, fake, cfg)

	first := submit(t, ts.URL, "", "one.wav", []byte("1"))
	<-fake.started
	second := submit(t, ts.URL, "", "two.wav", []byte("2"))

	if j, _ := s.Jobs().Get(first.ID); j.Status != StatusProcessing {
		t.Errorf("first job = %s", j.Status)
	}
	if j, _ := s.Jobs().Get(second.ID); j.Status != StatusPending {
		t.Errorf("second job = %s while the only slot is taken", j.Status)
	}

	close(fake.release)
	for _, id := range []string{first.ID, second.ID} {
		j, err := s.Jobs().Wait(waitCtx(t), id)
		if err != nil || j.Status != StatusCompleted {
			t.Errorf("job %s = %+v, %v", id, j, err)
		}
	}
}

func TestCloseCancelsQueuedJobs(t *testing.T) {
	fake := newFakeAnalyzer()
	fake.release = make(chan struct{})
	m := NewJobManager(fake, 1)

	running := m.Submit("", "a.wav", genesis.DefaultOptions())
	<-fake.started
	queued := m.Submit("", "b.wav", genesis.DefaultOptions())
	m.Close()

	for _, id := range []string{running.ID, queued.ID} {
		j, err := m.Get(id)
		if err != nil || j.Status != StatusFailed || !strings.Contains(j.Error, "context canceled") {
			t.Errorf("job %s after Close = %+v, %v", id, j, err)
		}
	}
}
