package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"presencebot/internal/chat"
	"presencebot/internal/middleware"
)

// UpdateHandler consumes one transport update. Errors are logged, never
// surfaced to the caller: the provider retries failed deliveries, and a
// retried update would replay the same user interaction.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd chat.Update) error
}

type Config struct {
	Addr string
	// WebhookSecret, when set, must match the provider's secret token header.
	WebhookSecret string
}

type server struct {
	handler UpdateHandler
}

func newRouter(h UpdateHandler, cfg Config) http.Handler {
	s := &server{handler: h}
	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	// The secret-token check guards only the webhook; health probes carry no
	// provider header.
	r.Method(http.MethodPost, "/webhook", middleware.Chain(
		http.HandlerFunc(s.webhook),
		middleware.SecretToken(cfg.WebhookSecret),
	))
	return middleware.Chain(r, middleware.RequestLog)
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// webhook always acknowledges with 200 once the body parses. A non-200 makes
// the provider redeliver the update, which duplicates user-visible effects.
func (s *server) webhook(w http.ResponseWriter, r *http.Request) {
	var upd chat.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid update body", http.StatusBadRequest)
		return
	}
	if err := s.handler.HandleUpdate(r.Context(), upd); err != nil {
		log.Printf("ingress: update %d: %v", upd.UpdateID, err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Run serves the webhook endpoint until ctx is canceled, then drains
// in-flight requests before returning.
func Run(ctx context.Context, h UpdateHandler, cfg Config) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(h, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("ingress: listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
