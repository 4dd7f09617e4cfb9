package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"turntable/internal/config"
	"turntable/internal/frames"
	"turntable/internal/logging"
	"turntable/internal/session"
	"turntable/internal/store"
	"turntable/internal/testsupport"
)

type sceneDecoder struct {
	t      *testing.T
	frames int

	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *sceneDecoder) Extract(ctx context.Context, _ string, outDir string) (frames.Sequence, error) {
	if d.started != nil {
		d.once.Do(func() { close(d.started) })
		select {
		case <-d.release:
		case <-ctx.Done():
			return frames.Sequence{}, ctx.Err()
		}
	}
	offsets := make([][2]float64, d.frames)
	for i := range offsets {
		offsets[i] = [2]float64{float64(i), 0}
	}
	return testsupport.WriteSequence(d.t, outDir, testsupport.NewScene(80, 60, 24, 3), offsets), nil
}

type fixture struct {
	cfg    *config.Config
	store  *store.Store
	server *httptest.Server
}

func newFixture(t *testing.T, decoder session.Decoder, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithTargetFrames(5))
	if mutate != nil {
		mutate(cfg)
	}
	st := testsupport.MustOpenStore(t, cfg)
	opts := []session.Option{session.WithStore(st)}
	if decoder != nil {
		opts = append(opts, session.WithDecoder(decoder))
	}
	pipeline, err := session.New(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	srv := httptest.NewServer(NewServer(cfg, pipeline, st, logging.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return &fixture{cfg: cfg, store: st, server: srv}
}

func uploadRequest(t *testing.T, base, field string, payload []byte, token string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("note", "ignored"); err != nil {
		t.Fatal(err)
	}
	part, err := w.CreateFormFile(field, "spin.MOV")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, base+"/process360", &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func do(t *testing.T, req *http.Request, out any) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func get(t *testing.T, rawURL string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, req, out)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil, func(c *config.Config) { c.API.Token = "secret" })
	var body HealthResponse
	resp := get(t, f.server.URL+"/health", &body)
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Fatalf("health = %d %+v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected correlation id header")
	}
}

func TestProcessServesLocalFramesAndHistory(t *testing.T) {
	f := newFixture(t, &sceneDecoder{t: t, frames: 8}, nil)

	var result session.Result
	resp := do(t, uploadRequest(t, f.server.URL, "file", []byte("not really a video"), ""), &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !result.Success || result.FrameCount != 5 || result.RequestedFrames != 5 || result.Shortfall != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	frameURL, err := url.Parse(result.FrameURLs[0])
	if err != nil {
		t.Fatal(err)
	}
	frameResp, err := http.Get(f.server.URL + frameURL.Path)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(frameResp.Body)
	frameResp.Body.Close()
	if frameResp.StatusCode != http.StatusOK || len(data) == 0 {
		t.Fatalf("frame fetch = %d (%d bytes)", frameResp.StatusCode, len(data))
	}
	if ct := frameResp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}

	var list SessionListResponse
	get(t, f.server.URL+"/api/sessions", &list)
	if len(list.Sessions) != 1 || list.Sessions[0].Status != "completed" || list.Sessions[0].VideoName != "spin.MOV" {
		t.Fatalf("unexpected history: %+v", list)
	}

	var one SessionResponse
	resp = get(t, f.server.URL+"/api/sessions/"+result.SessionID, &one)
	if resp.StatusCode != http.StatusOK || one.Session.FrameCount != 5 {
		t.Fatalf("session lookup = %d %+v", resp.StatusCode, one)
	}
}

func TestProcessEmptyUploadIs400(t *testing.T) {
	f := newFixture(t, nil, nil)
	var body ErrorResponse
	resp := do(t, uploadRequest(t, f.server.URL, "file", nil, ""), &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Success || body.SessionID == "" || !strings.HasPrefix(body.Detail, "Processing failed: extract:") {
		t.Fatalf("unexpected body: %+v", body)
	}
	sess, err := f.store.Get(context.Background(), body.SessionID)
	if err != nil || sess.Status != store.StatusFailed {
		t.Fatalf("stored session: %+v, %v", sess, err)
	}
}

func TestProcessMissingFileField(t *testing.T) {
	f := newFixture(t, nil, nil)
	var body ErrorResponse
	resp := do(t, uploadRequest(t, f.server.URL, "video", []byte("x"), ""), &body)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body.Detail, `missing "file" field`) {
		t.Fatalf("got %d %+v", resp.StatusCode, body)
	}
}

func TestProcessRejectsOversizedUpload(t *testing.T) {
	f := newFixture(t, &sceneDecoder{t: t, frames: 3}, func(c *config.Config) { c.API.MaxUploadMB = 1 })
	var body ErrorResponse
	resp := do(t, uploadRequest(t, f.server.URL, "file", bytes.Repeat([]byte{1}, 1<<20+64<<10), ""), &body)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body.Detail, "exceeds 1 MB") {
		t.Fatalf("got %d %+v", resp.StatusCode, body)
	}
}

func TestAuthGuardsProcessAndHistory(t *testing.T) {
	f := newFixture(t, &sceneDecoder{t: t, frames: 6}, func(c *config.Config) { c.API.Token = "secret" })

	resp := do(t, uploadRequest(t, f.server.URL, "file", []byte("v"), ""), nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp = do(t, uploadRequest(t, f.server.URL, "file", []byte("v"), "wrong"), nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
	resp = get(t, f.server.URL+"/api/sessions", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for history, got %d", resp.StatusCode)
	}
	resp = do(t, uploadRequest(t, f.server.URL, "file", []byte("v"), "secret"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestFrameRouteRejectsBadPaths(t *testing.T) {
	f := newFixture(t, nil, nil)
	valid := "6f9619ff-8b86-4011-b42d-00c04fc964ff"
	paths := []string{
		"/frames/not-a-uuid/360_000.jpg",
		"/frames/" + valid + "/..%2Fsessions.db",
		"/frames/" + valid + "/frame_0001.jpg",
		"/frames/" + valid + "/360_000.txt",
		"/frames/" + valid + "/360_000.jpg",
	}
	for _, p := range paths {
		resp := get(t, f.server.URL+p, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", p, resp.StatusCode)
		}
	}
}

func TestBusyServerReturns503(t *testing.T) {
	dec := &sceneDecoder{t: t, frames: 4, started: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, dec, func(c *config.Config) { c.API.MaxConcurrentSessions = 1 })

	first := uploadRequest(t, f.server.URL, "file", []byte("v"), "")
	done := make(chan int, 1)
	go func() {
		resp, err := http.DefaultClient.Do(first)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-dec.started

	var body ErrorResponse
	resp := do(t, uploadRequest(t, f.server.URL, "file", []byte("v"), ""), &body)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	close(dec.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first session finished with %d", code)
	}
}

func TestStopCancelsAndRecordsRunningSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTargetFrames(5))
	cfg.API.Bind = "127.0.0.1:0"
	st := testsupport.MustOpenStore(t, cfg)
	dec := &sceneDecoder{t: t, frames: 4, started: make(chan struct{}), release: make(chan struct{})}
	pipeline, err := session.New(cfg, logging.NewNop(), session.WithStore(st), session.WithDecoder(dec))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	srv := NewServer(cfg, pipeline, st, logging.NewNop())
	srv.grace = 50 * time.Millisecond
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan int, 1)
	go func() {
		resp, err := http.DefaultClient.Do(uploadRequest(t, "http://"+srv.Addr(), "file", []byte("v"), ""))
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-dec.started

	stopped := make(chan struct{})
	go func() {
		srv.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	if code := <-done; code != http.StatusInternalServerError {
		t.Fatalf("cancelled session answered %d", code)
	}

	sessions, err := st.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != store.StatusFailed {
		t.Fatalf("expected one failed session before Stop returned, got %+v", sessions)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "http://turntable.test", "file", []byte("v"), ""))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("upload after Stop answered %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil, nil)
	req, _ := http.NewRequest(http.MethodOptions, f.server.URL+"/process360", nil)
	req.Header.Set("Origin", "https://viewer.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp := do(t, req, nil)
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight = %d %q", resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestSessionNotFound(t *testing.T) {
	f := newFixture(t, nil, nil)
	var body ErrorResponse
	resp := get(t, f.server.URL+"/api/sessions/missing", &body)
	if resp.StatusCode != http.StatusNotFound || body.Detail != "session not found" {
		t.Fatalf("got %d %+v", resp.StatusCode, body)
	}
}

func TestUploadExt(t *testing.T) {
	cases := map[string]string{
		"clip.MOV":     ".mov",
		"clip":         ".mp4",
		"clip.tar.gz":  ".gz",
		"clip.m$v":     ".mp4",
		"clip.toolong": ".mp4",
	}
	for in, want := range cases {
		if got := uploadExt(in); got != want {
			t.Errorf("uploadExt(%q) = %q, want %q", in, got, want)
		}
	}
}
