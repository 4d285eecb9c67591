package led

import (
	"sync"

	"github.com/smazurov/lockkeys/internal/events"
	"github.com/smazurov/lockkeys/internal/logging"
)

// Mirror lights board LEDs after keyboard keys: every KeyStatusChangedEvent for a
// mapped key switches the LED it maps to.
type Mirror struct {
	controller  Controller
	bus         *events.Bus
	mapping     map[string]string // key name -> LED name
	logger      logging.Logger
	mu          sync.Mutex
	unsubscribe func()
}

// NewMirror creates a Mirror. mapping goes from key name to LED name.
func NewMirror(controller Controller, bus *events.Bus, mapping map[string]string, logger logging.Logger) *Mirror {
	return &Mirror{
		controller: controller,
		bus:        bus,
		mapping:    mapping,
		logger:     logger,
	}
}

// Start subscribes to key status events.
func (m *Mirror) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}
	m.unsubscribe = m.bus.Subscribe(m.handleEvent)
	m.logger.Info("LED mirror started", "mapping", m.mapping)
}

// Stop unsubscribes. It may be called more than once.
func (m *Mirror) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe == nil {
		return
	}
	m.unsubscribe()
	m.unsubscribe = nil
	m.logger.Info("LED mirror stopped")
}

func (m *Mirror) handleEvent(e events.KeyStatusChangedEvent) {
	name, ok := m.mapping[e.Key]
	if !ok {
		return
	}
	if err := m.controller.Set(name, e.Enabled); err != nil {
		m.logger.Warn("Failed to mirror key on LED", "key", e.Key, "led", name, "error", err)
		return
	}
	m.logger.Debug("Mirrored key on LED", "key", e.Key, "led", name, "enabled", e.Enabled)
}
