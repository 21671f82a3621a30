package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
	now func() time.Time
}

// NewManager creates a new event manager. bus may be nil, in which case events are only logged.
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
		now: time.Now,
	}
}

// Bus returns the bus events are published to
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit publishes an account-scoped event (accountID 0 for system events) and logs it
func (m *Manager) Emit(module string, accountID int64, data EventData) {
	event := Event{
		Type:      data.EventType(),
		Timestamp: m.now(),
		Data:      data,
		Module:    module,
		AccountID: accountID,
	}

	if m.bus != nil {
		m.bus.Publish(event)
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(event.Type)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.Emit(module, 0, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}
