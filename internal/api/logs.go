package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/lockkeys/internal/events"
	"github.com/smazurov/lockkeys/internal/logging"
)

// LogStreamInput selects how much history a log stream starts with.
type LogStreamInput struct {
	Tail int `query:"tail" default:"100" minimum:"0" maximum:"500" doc:"Number of past entries to send first, 0 for all"`
}

func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Recent log entries followed by new ones as they are written",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *LogStreamInput, send sse.Sender) {
		eventCh := make(chan any, 100)
		if s.eventBus != nil {
			unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
			defer unsubscribe()
		}

		if history := logging.GetHistory(); history != nil {
			for _, entry := range history.Recent(input.Tail) {
				if err := send.Data(events.LogEntryFrom(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
