package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smazurov/lockkeys/internal/keyboard"
)

func TestReloadMetrics(t *testing.T) {
	m := New()

	m.ReloadFinished(nil, 3)
	m.ReloadFinished(nil, 2)
	m.ReloadFinished(errors.New("no display"), 0)

	if got := testutil.ToFloat64(m.reloads.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok reloads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.reloads.WithLabelValues("error")); got != 1 {
		t.Errorf("error reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.reportedKeys); got != 2 {
		t.Errorf("reported keys = %v, want 2 (failed reload must not reset it)", got)
	}
}

func TestDriveMetrics(t *testing.T) {
	m := New()

	m.DriveStarted("Num Lock")
	m.DriveStarted("Num Lock")
	if got := testutil.ToFloat64(m.drivesInFlight.WithLabelValues("Num Lock")); got != 2 {
		t.Errorf("in flight = %v, want 2", got)
	}

	m.DriveFinished("Num Lock", keyboard.OutcomeCancelled, 1)
	m.DriveFinished("Num Lock", keyboard.OutcomeConverged, 2)

	if got := testutil.ToFloat64(m.drivesInFlight.WithLabelValues("Num Lock")); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.drives.WithLabelValues("Num Lock", "converged")); got != 1 {
		t.Errorf("converged = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.driveAttempts); got != 1 {
		t.Errorf("attempt histograms = %d, want 1", got)
	}
}

func TestListenersAndCommands(t *testing.T) {
	m := New()

	m.ListenersChanged("Scroll Lock", 2)
	m.ObserveCommand("xset", 10*time.Millisecond, nil)
	m.ObserveCommand("xset", 20*time.Millisecond, errors.New("exit 1"))

	if got := testutil.ToFloat64(m.listeners.WithLabelValues("Scroll Lock")); got != 2 {
		t.Errorf("listeners = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues("xset", "error")); got != 1 {
		t.Errorf("failed xset runs = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ReloadFinished(nil, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{`lockkeys_reloads_total{result="ok"} 1`, "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

var _ keyboard.Recorder = (*Metrics)(nil)
