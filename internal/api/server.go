// Package api serves the lockkeys HTTP API: key state, key changes, keymap reset and
// server-sent event streams.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/lockkeys/internal/api/models"
	"github.com/smazurov/lockkeys/internal/events"
	"github.com/smazurov/lockkeys/internal/keyboard"
	"github.com/smazurov/lockkeys/internal/logging"
	"github.com/smazurov/lockkeys/internal/version"
)

// KeyService is the keyboard side of the API.
type KeyService interface {
	Keys() []string
	Reload(ctx context.Context) []keyboard.Status
	Snapshot() []keyboard.Status
	Get(ctx context.Context, key string) (bool, error)
	Drive(ctx context.Context, key string, on bool) (keyboard.Result, error)
	ResetKeymap(ctx context.Context) error
	Reloader() *keyboard.Reloader
}

// Options configures a Server.
type Options struct {
	AuthUsername   string
	AuthPassword   string
	Keys           KeyService
	EventBus       *events.Bus
	MetricsHandler http.Handler
	CORS           CORSConfig
}

// Server is the huma API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	keys       KeyService
	eventBus   *events.Bus
	logger     *slog.Logger
}

// NewServer creates a server and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := opts.CORS
	if cors.AllowOrigin == "" {
		cors = DefaultCORSConfig()
	}
	AddCORSHandler(mux, cors)

	config := huma.DefaultConfig("lockkeys API", version.String())
	config.Info.Description = "Keyboard indicator keys as switches"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	s := &Server{
		api:      api,
		mux:      mux,
		keys:     opts.Keys,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(cors))
	api.UseMiddleware(NewLoggingMiddleware(logging.GetLogger("http")))
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.registerRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Serve listens on addr until ctx is done, then shuts down within five seconds.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting lockkeys API server", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		// Event streams hold connections open; drop them.
		err = s.httpServer.Close()
	}
	if srvErr := <-errCh; !errors.Is(srvErr, http.ErrServerClosed) {
		return srvErr
	}
	return err
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   v.Version,
				GitCommit: v.GitCommit,
				BuildDate: v.BuildDate,
				BuildID:   v.BuildID,
				GoVersion: v.GoVersion,
				Compiler:  v.Compiler,
				Platform:  v.Platform,
			},
		}, nil
	})

	s.registerKeyRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns the security requirement of authenticated operations.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}

// basicAuthMiddleware checks credentials on operations that declare security. Event
// streams may pass base64 "user:password" in the auth query parameter, since
// EventSource cannot set headers.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	reject := func(ctx huma.Context, msg string, errs ...error) {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="lockkeys"`)
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var encoded string
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				reject(ctx, "Invalid authentication type")
				return
			}
			encoded = header[len(prefix):]
		} else {
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			reject(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			reject(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			reject(ctx, "Invalid credentials format")
			return
		}
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userOK || !passOK {
			reject(ctx, "Invalid credentials")
			return
		}
		next(ctx)
	}
}
