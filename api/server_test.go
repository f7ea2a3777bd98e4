package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moyoez/wx-station-go/api/models"
	"github.com/moyoez/wx-station-go/tool"
)

type nopHost struct{}

func (nopHost) Reboot() error         { return nil }
func (nopHost) StartSetupMode() error { return nil }

func newTestHandler(t *testing.T, limiter *rate.Limiter) (http.Handler, *tool.ConfigStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := tool.NewConfigStore(tool.NewDirFlash(t.TempDir()), "")
	if _, err := store.Load(); err != nil {
		t.Fatal(err)
	}
	srv := NewServer(Options{Port: 80, Version: "9.9.9", Store: store, Host: nopHost{}, Limiter: limiter})
	h, err := srv.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h, store
}

func TestIndexRendersForm(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("index: %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`name="stationName" value="wx-station"`,
		`name="intervalHttp" value="5" placeholder="5" disabled`,
		`<option value="2" selected>12 hours</option>`,
		`name="serverUrl3"`,
		"WX-Station 9.9.9",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page misses %q", want)
		}
	}
}

func TestSaveShowsFlashOnce(t *testing.T) {
	h, store := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(url.Values{"stationName": {"Peak <1>"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("save: %d", w.Code)
	}
	if store.Snapshot().StationName != "Peak <1>" {
		t.Fatalf("record not updated")
	}

	var flash *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == models.FlashCookieName {
			flash = c
		}
	}
	if flash == nil {
		t.Fatal("no flash cookie")
	}

	page := httptest.NewRequest(http.MethodGet, "/", nil)
	page.AddCookie(flash)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, page)
	body := w.Body.String()
	if !strings.Contains(body, "Configuration saved.") {
		t.Errorf("flash message not rendered")
	}
	if !strings.Contains(body, "Peak &lt;1&gt;") {
		t.Errorf("station name should be escaped")
	}

	page = httptest.NewRequest(http.MethodGet, "/", nil)
	page.AddCookie(flash)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, page)
	if strings.Contains(w.Body.String(), "Configuration saved.") {
		t.Errorf("flash message must only show once")
	}
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	h, _ := newTestHandler(t, rate.NewLimiter(rate.Limit(0.001), 1))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/factory", nil))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("first factory: %d", w.Code)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/factory", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Errorf("read-only routes are not limited, got %d", w.Code)
	}
}
