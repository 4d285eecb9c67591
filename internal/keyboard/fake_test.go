package keyboard

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDevice is an in-memory status source.
type fakeDevice struct {
	mu       sync.Mutex
	names    []string
	states   map[string]bool
	queries  int
	queryErr error
}

func newFakeDevice(names ...string) *fakeDevice {
	return &fakeDevice{names: names, states: make(map[string]bool)}
}

func (d *fakeDevice) Query(context.Context) ([]Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queries++
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	statuses := make([]Status, 0, len(d.names))
	for i, name := range d.names {
		statuses = append(statuses, Status{Name: name, ID: big.NewInt(int64(i)), State: StateOf(d.states[name])})
	}
	return statuses, nil
}

func (d *fakeDevice) set(name string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[name] = on
}

func (d *fakeDevice) get(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[name]
}

func (d *fakeDevice) setQueryErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queryErr = err
}

func (d *fakeDevice) queryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries
}

// counter counts calls to key actions.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// directKey returns a key whose actions change the device immediately.
func (d *fakeDevice) directKey(name string) (Key, *counter, *counter) {
	on, off := &counter{}, &counter{}
	return Key{
		Name: name,
		TurnOn: func(context.Context) error {
			on.inc()
			d.set(name, true)
			return nil
		},
		TurnOff: func(context.Context) error {
			off.inc()
			d.set(name, false)
			return nil
		},
	}, on, off
}

type drivenOutcome struct {
	key      string
	outcome  Outcome
	attempts int
}

type fakeRecorder struct {
	mu        sync.Mutex
	reloads   int
	failed    int
	listeners map[string]int
	started   int
	outcomes  []drivenOutcome
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{listeners: make(map[string]int)}
}

func (r *fakeRecorder) ReloadFinished(err error, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads++
	if err != nil {
		r.failed++
	}
}

func (r *fakeRecorder) ListenersChanged(key string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[key] = count
}

func (r *fakeRecorder) DriveStarted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeRecorder) DriveFinished(key string, outcome Outcome, attempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, drivenOutcome{key, outcome, attempts})
}

func (r *fakeRecorder) snapshot() []drivenOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]drivenOutcome(nil), r.outcomes...)
}
