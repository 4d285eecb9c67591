package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smazurov/lockkeys/internal/api/models"
)

func TestListKeys(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.device.set("Num Lock", true)
	f.device.set("Caps Lock", true)

	rec := f.do(t, http.MethodGet, "/api/keys", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got := decode[models.KeysData](t, rec).Keys
	want := []models.KeyData{
		{Name: "Num Lock", ID: "1", Enabled: true, Known: true},
		{Name: "Scroll Lock", ID: "2", Enabled: false, Known: true},
	}
	if len(got) != len(want) {
		t.Fatalf("keys = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keys[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGetKey(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.device.set("Scroll Lock", true)

	tests := []struct {
		name    string
		path    string
		code    int
		enabled bool
	}{
		{"on", "/api/keys/Scroll%20Lock", http.StatusOK, true},
		{"off", "/api/keys/Num%20Lock", http.StatusOK, false},
		{"not controlled", "/api/keys/Caps%20Lock", http.StatusNotFound, false},
		{"unknown", "/api/keys/Kana", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, "", nil)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
			if tt.code == http.StatusOK {
				if got := decode[models.KeyData](t, rec); got.Enabled != tt.enabled || !got.Known {
					t.Errorf("key = %+v, want enabled=%v", got, tt.enabled)
				}
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	rec := f.do(t, http.MethodPut, "/api/keys/Scroll%20Lock", `{"enabled": true}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[models.SetKeyData](t, rec)
	want := models.SetKeyData{Name: "Scroll Lock", Requested: true, Enabled: true, Outcome: "converged", Attempts: 1}
	if got != want {
		t.Errorf("response = %+v, want %+v", got, want)
	}
	if !f.device.get("Scroll Lock") {
		t.Error("device key not switched on")
	}

	rec = f.do(t, http.MethodPut, "/api/keys/Scroll%20Lock", `{"enabled": true}`, nil)
	got = decode[models.SetKeyData](t, rec)
	want = models.SetKeyData{Name: "Scroll Lock", Requested: true, Enabled: true, Outcome: "unchanged"}
	if rec.Code != http.StatusOK || got != want {
		t.Errorf("repeated request: status = %d, response = %+v, want %+v", rec.Code, got, want)
	}

	rec = f.do(t, http.MethodPut, "/api/keys/Scroll%20Lock", `{"enabled": false}`, nil)
	if rec.Code != http.StatusOK || f.device.get("Scroll Lock") {
		t.Errorf("switching off: status = %d, device on = %v", rec.Code, f.device.get("Scroll Lock"))
	}
}

func TestSetKeySupersededAtTarget(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	held, release := f.device.hold()

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- f.do(t, http.MethodPut, "/api/keys/Num%20Lock", `{"enabled": true}`, nil)
	}()
	<-held

	second := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		second <- f.do(t, http.MethodPut, "/api/keys/Num%20Lock", `{"enabled": true}`, nil)
	}()
	<-held
	release()

	for _, tt := range []struct {
		name      string
		responses chan *httptest.ResponseRecorder
		want      models.SetKeyData
	}{
		{"superseded", first, models.SetKeyData{Name: "Num Lock", Requested: true, Enabled: true, Cancelled: true, Outcome: "cancelled", Attempts: 1}},
		{"latest", second, models.SetKeyData{Name: "Num Lock", Requested: true, Enabled: true, Outcome: "converged", Attempts: 1}},
	} {
		var rec *httptest.ResponseRecorder
		select {
		case rec = <-tt.responses:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s request did not return", tt.name)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d: %s", tt.name, rec.Code, rec.Body.String())
		}
		if got := decode[models.SetKeyData](t, rec); got != tt.want {
			t.Errorf("%s: response = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestSetKeyFailures(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.device.stuck["Num Lock"] = true

	rec := f.do(t, http.MethodPut, "/api/keys/Num%20Lock", `{"enabled": true}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("stuck key: status = %d, want 503: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPut, "/api/keys/Kana", `{"enabled": true}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown key: status = %d, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodPut, "/api/keys/Num%20Lock", `{"enabled": "yes"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid body: status = %d, want 422", rec.Code)
	}
}

func TestResetKeymap(t *testing.T) {
	tests := []struct {
		name  string
		reset func(context.Context) error
		code  int
	}{
		{"unsupported", nil, http.StatusNotImplemented},
		{"ok", func(context.Context) error { return nil }, http.StatusOK},
		{"failing", func(context.Context) error { return errors.New("xmodmap: no display") }, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOptions{resetKeymap: tt.reset})
			rec := f.do(t, http.MethodPost, "/api/keymap/reset", "", nil)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
		})
	}
}
