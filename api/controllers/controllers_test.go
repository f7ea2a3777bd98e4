package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/wx-station-go/api/models"
	"github.com/moyoez/wx-station-go/diag"
	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

type fakeHost struct {
	mu      sync.Mutex
	reboots int
	setups  int
}

func (h *fakeHost) Reboot() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reboots++
	return nil
}

func (h *fakeHost) StartSetupMode() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setups++
	return nil
}

type recordingHub struct {
	mu   sync.Mutex
	sent []types.Notification
}

func (r *recordingHub) Broadcast(n *types.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, *n)
}

func (r *recordingHub) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

type testEnv struct {
	router *gin.Engine
	store  *tool.ConfigStore
	host   *fakeHost
	hub    *recordingHub
	checks int
}

// setupRouter wires the controllers on a fresh store in a temp flash directory.
func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := tool.NewConfigStore(tool.NewDirFlash(t.TempDir()), tool.DefaultDocumentName)
	if _, err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	env := &testEnv{store: store, host: &fakeHost{}, hub: &recordingHub{}}

	flashes := models.NewFlashStore(time.Minute)
	configCtrl := NewConfigController(store, flashes, env.hub)
	deviceCtrl := NewDeviceController(env.host, env.hub)
	deviceCtrl.SetScheduler(func(_ time.Duration, fn func()) { fn() })
	diagCtrl := NewDiagController(store, func(_ context.Context, targets []diag.Target) []types.ReachabilityResult {
		env.checks++
		out := make([]types.ReachabilityResult, len(targets))
		for i, tg := range targets {
			out[i] = types.ReachabilityResult{Name: tg.Name, Target: tg.Address(), Method: tg.Method, Reachable: true}
		}
		return out
	}, nil)

	router := gin.New()
	router.POST("/save", configCtrl.HandleSave)
	router.GET("/download", configCtrl.HandleDownload)
	router.GET("/config.json", configCtrl.HandleConfigJSON)
	router.POST("/restore", configCtrl.HandleRestore)
	router.GET("/factory", configCtrl.HandleFactory)
	router.GET("/reboot", deviceCtrl.HandleReboot)
	router.GET("/wifi", deviceCtrl.HandleSetup)
	router.GET("/status", HandleStatus(store, "test", func() int { return 2 }))
	router.GET("/qrcode", HandleQRCode(func() string { return "http://192.168.4.1/" }))
	router.GET("/diag", diagCtrl.HandleDiag)
	env.router = router
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func restoreRequest(t *testing.T, field, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile(field, "config.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/restore", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func hasFlashCookie(w *httptest.ResponseRecorder) bool {
	for _, c := range w.Result().Cookies() {
		if c.Name == models.FlashCookieName && c.Value != "" {
			return true
		}
	}
	return false
}

func TestDownloadMissingDocument(t *testing.T) {
	env := setupRouter(t)
	for _, path := range []string{"/download", "/config.json"} {
		w := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
		if w.Body.String() != "Config file not found" {
			t.Errorf("%s: unexpected body %q", path, w.Body.String())
		}
	}
}

func TestSaveThenDownload(t *testing.T) {
	env := setupRouter(t)

	w := env.do(postForm(url.Values{
		"stationName":  {"Field Unit"},
		"activeMQTT":   {"on"},
		"intervalMqtt": {"5"},
	}))
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", w.Code, w.Header().Get("Location"))
	}
	if !hasFlashCookie(w) {
		t.Errorf("save should leave a flash message")
	}

	cfg := env.store.Snapshot()
	if cfg.StationName != "Field Unit" || !cfg.ActiveMQTT || cfg.IntervalMQTT != 300000 {
		t.Errorf("form not applied: %+v", cfg)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/download", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download: %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=config.json" {
		t.Errorf("unexpected disposition %q", got)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("downloaded document is not JSON: %v", err)
	}
	if doc["stationName"] != "Field Unit" || doc["intervalMqtt"] != float64(300000) {
		t.Errorf("unexpected document %v", doc)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/config.json", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Disposition") != "" {
		t.Errorf("config.json should be inline, got %d %q", w.Code, w.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}

	if got := env.hub.kinds(); len(got) != 1 || got[0] != types.NotifyTypeConfigSaved {
		t.Errorf("expected one saved notification, got %v", got)
	}
}

func TestSaveRejectedFieldStillSaves(t *testing.T) {
	env := setupRouter(t)
	w := env.do(postForm(url.Values{"aprsPort": {"99999"}, "stationName": {"X"}}))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	cfg := env.store.Snapshot()
	if cfg.AprsPort != types.DefaultAprsPort || cfg.StationName != "X" {
		t.Errorf("unexpected record %+v", cfg)
	}
	if state, _ := env.store.State(); state != tool.StatePersisted {
		t.Errorf("save should be unconditional, state %v", state)
	}
}

func TestRestoreAndFactory(t *testing.T) {
	env := setupRouter(t)

	w := env.do(restoreRequest(t, RestoreFieldName, `{"stationName":"From Backup","mqttPort":1884}`))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("restore: expected 303, got %d", w.Code)
	}
	cfg := env.store.Snapshot()
	if cfg.StationName != "From Backup" || cfg.MqttPort != 1884 {
		t.Errorf("restore not loaded: %+v", cfg)
	}
	if state, _ := env.store.State(); state != tool.StateLoaded {
		t.Errorf("expected loaded state, got %v", state)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/factory", nil))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("factory: expected 303, got %d", w.Code)
	}
	if env.store.Snapshot() != types.DefaultStationConfig() {
		t.Errorf("factory reset should install defaults")
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/download", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("document should be gone after factory reset, got %d", w.Code)
	}

	got := env.hub.kinds()
	if len(got) != 2 || got[0] != types.NotifyTypeConfigRestored || got[1] != types.NotifyTypeConfigReset {
		t.Errorf("unexpected notifications %v", got)
	}
}

func TestRestoreCorruptUpload(t *testing.T) {
	env := setupRouter(t)
	w := env.do(restoreRequest(t, RestoreFieldName, "not json at all"))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if state, _ := env.store.State(); state != tool.StateCorrupt {
		t.Errorf("expected corrupt state, got %v", state)
	}
	if env.store.Snapshot() != types.DefaultStationConfig() {
		t.Errorf("corrupt restore should leave defaults")
	}
}

func TestRestoreWithoutFile(t *testing.T) {
	env := setupRouter(t)
	w := env.do(restoreRequest(t, "otherField", `{"stationName":"nope"}`))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if env.store.Snapshot().StationName == "nope" {
		t.Errorf("unrelated field must not be restored")
	}

	req := httptest.NewRequest(http.MethodPost, "/restore", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	if w := env.do(req); w.Code != http.StatusSeeOther {
		t.Errorf("non multipart restore: expected 303, got %d", w.Code)
	}
}

func TestRebootAndSetup(t *testing.T) {
	env := setupRouter(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/reboot", nil))
	if w.Code != http.StatusOK || w.Body.String() != "Rebooting..." {
		t.Fatalf("reboot: %d %q", w.Code, w.Body.String())
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/wifi", nil))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("wifi: expected 303, got %d", w.Code)
	}
	if env.host.reboots != 1 || env.host.setups != 1 {
		t.Errorf("host calls reboot=%d setup=%d", env.host.reboots, env.host.setups)
	}
}

func TestStatus(t *testing.T) {
	env := setupRouter(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var resp types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.LoadState != "defaults" || resp.StationName != types.DefaultStationName || !resp.Running || resp.WSClients != 2 {
		t.Errorf("unexpected status %+v", resp)
	}
}

func TestQRCode(t *testing.T) {
	env := setupRouter(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/qrcode?size=128x128", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qrcode: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("body is not a PNG")
	}
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]int{"": 0, "200": 200, "300x300": 300, "abc": 0, "-5": 0} {
		if got := parseSize(in); got != want {
			t.Errorf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestDiagUsesCache(t *testing.T) {
	env := setupRouter(t)
	if err := env.store.Update(func(cfg *types.StationConfig) {
		cfg.ActiveAPRS = true
		cfg.ActiveMQTT = true
	}); err != nil {
		t.Fatal(err)
	}

	var resp struct {
		Data []types.ReachabilityResult `json:"data"`
	}
	w := env.do(httptest.NewRequest(http.MethodGet, "/diag", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("diag: %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Name != "aprs" || resp.Data[1].Method != diag.MethodMQTT {
		t.Fatalf("unexpected results %+v", resp.Data)
	}

	env.do(httptest.NewRequest(http.MethodGet, "/diag", nil))
	if env.checks != 1 {
		t.Errorf("second request should be served from cache, checks=%d", env.checks)
	}
	env.do(httptest.NewRequest(http.MethodGet, "/diag?fresh=1", nil))
	if env.checks != 2 {
		t.Errorf("fresh request should check again, checks=%d", env.checks)
	}
}

func TestDiagToleratesExtraResults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := tool.NewConfigStore(tool.NewDirFlash(t.TempDir()), tool.DefaultDocumentName)
	if _, err := store.Load(); err != nil {
		t.Fatal(err)
	}
	if err := store.Update(func(cfg *types.StationConfig) { cfg.ActiveAPRS = true }); err != nil {
		t.Fatal(err)
	}
	ctrl := NewDiagController(store, func(_ context.Context, targets []diag.Target) []types.ReachabilityResult {
		out := make([]types.ReachabilityResult, len(targets)+3)
		for i := range out {
			out[i] = types.ReachabilityResult{Name: "x", Target: "host", Method: diag.MethodICMP}
		}
		return out
	}, nil)
	router := gin.New()
	router.GET("/diag", ctrl.HandleDiag)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diag?fresh=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("diag: %d", w.Code)
	}
	var resp struct {
		Data []types.ReachabilityResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 {
		t.Errorf("expected one row per target, got %d", len(resp.Data))
	}
}
