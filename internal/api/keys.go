package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lockkeys/internal/api/models"
	"github.com/smazurov/lockkeys/internal/keyboard"
)

func (s *Server) registerKeyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-keys",
		Method:      http.MethodGet,
		Path:        "/api/keys",
		Summary:     "List Keys",
		Description: "Reload the keyboard status and return every controlled key",
		Tags:        []string{"keys"},
		Security:    withAuth(),
		Errors:      []int{401, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.KeysResponse, error) {
		statuses := s.keys.Reload(ctx)
		if statuses == nil {
			return nil, huma.Error502BadGateway("Keyboard status unavailable")
		}

		data := models.KeysData{Keys: make([]models.KeyData, 0, len(s.keys.Keys()))}
		for _, name := range s.keys.Keys() {
			status, ok := keyboard.Find(statuses, name)
			data.Keys = append(data.Keys, keyData(name, status, ok))
		}
		return &models.KeysResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-key",
		Method:      http.MethodGet,
		Path:        "/api/keys/{name}",
		Summary:     "Get Key",
		Description: "Query the current state of one key",
		Tags:        []string{"keys"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 502},
	}, func(ctx context.Context, input *models.KeyInput) (*models.KeyResponse, error) {
		on, err := s.keys.Get(ctx, input.Name)
		if err != nil {
			return nil, s.keyError(input.Name, err)
		}
		data := models.KeyData{Name: input.Name, Enabled: on, Known: true}
		for _, status := range s.keys.Snapshot() {
			if status.Name == input.Name {
				data.ID = status.ID.String()
			}
		}
		return &models.KeyResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-key",
		Method:      http.MethodPut,
		Path:        "/api/keys/{name}",
		Summary:     "Set Key",
		Description: "Drive a key to the requested state. A newer request for the same key " +
			"supersedes this one, which then reports cancelled with the state it left behind.",
		Tags:     []string{"keys"},
		Security: withAuth(),
		Errors:   []int{401, 404, 502, 503},
	}, func(ctx context.Context, input *models.SetKeyInput) (*models.SetKeyResponse, error) {
		target := input.Body.Enabled
		r, err := s.keys.Drive(ctx, input.Name, target)
		if err != nil {
			return nil, s.keyError(input.Name, err)
		}
		return &models.SetKeyResponse{
			Body: models.SetKeyData{
				Name:      input.Name,
				Requested: target,
				Enabled:   r.On,
				Cancelled: r.Cancelled(),
				Outcome:   string(r.Outcome),
				Attempts:  r.Attempts,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-keymap",
		Method:      http.MethodPost,
		Path:        "/api/keymap/reset",
		Summary:     "Reset Keymap",
		Description: "Run the keymap preparation again, for example after a keyboard was replugged",
		Tags:        []string{"keys"},
		Security:    withAuth(),
		Errors:      []int{401, 501, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.KeymapResetResponse, error) {
		if err := s.keys.ResetKeymap(ctx); err != nil {
			if errors.Is(err, keyboard.ErrKeymapResetUnsupported) {
				return nil, huma.Error501NotImplemented("Keymap reset is not available for this status source")
			}
			return nil, huma.Error502BadGateway("Keymap reset failed", err)
		}
		return &models.KeymapResetResponse{Body: models.KeymapResetData{Status: "ok"}}, nil
	})
}

func keyData(name string, status keyboard.Status, known bool) models.KeyData {
	data := models.KeyData{Name: name, Known: known}
	if known {
		data.ID = status.ID.String()
		data.Enabled = status.On()
	}
	return data
}

// keyError maps keyboard errors onto HTTP statuses.
func (s *Server) keyError(key string, err error) error {
	switch {
	case errors.Is(err, keyboard.ErrUnknownKey):
		return huma.Error404NotFound("Unknown key "+key, err)
	case errors.Is(err, keyboard.ErrStateNotChanged):
		s.logger.Warn("Key did not reach requested state", "key", key, "error", err)
		return huma.Error503ServiceUnavailable(err.Error(), err)
	case errors.Is(err, keyboard.ErrServiceClosed):
		return huma.Error503ServiceUnavailable("Keyboard service is shutting down", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("Request for "+key+" did not finish", err)
	default:
		return huma.Error502BadGateway("Keyboard status unavailable for "+key, err)
	}
}
