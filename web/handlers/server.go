package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	ds "github.com/starfederation/datastar-go/datastar"

	"nami/store"
	assets "nami/web"
)

const SHUTDOWN_GRACE = 5 * time.Second

type Server struct {
	renderer Renderer
	sessions *Sessions
	handler  *http.ServeMux
	logger   *slog.Logger
}

func NewServer(renderer Renderer, sessions *Sessions, logger *slog.Logger) *Server {
	s := &Server{
		renderer: renderer,
		sessions: sessions,
		logger:   logger,
	}

	handler := http.NewServeMux()
	handler.HandleFunc("GET /{$}", s.IndexHandler)
	handler.HandleFunc("GET /updates", s.UpdatesHandler)
	handler.Handle("GET /static/", http.FileServer(http.FS(assets.Static)))

	for path, uiHandler := range renderer.Handlers() {
		handler.HandleFunc(path, uiHandler)
	}

	s.handler = handler

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done, then shuts down gracefully. Open update streams end with ctx.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_GRACE)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// IndexHandler is the main entrypoint for the UI
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	getClientID(w, r)
	err := s.renderer.Templates().ExecuteTemplate(w, "index", s.renderer.Data())
	if err != nil {
		s.logger.Error("couldn't execute template for index", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// UpdatesHandler holds one sse stream per page. Panels are diffed on every tick and drawer output is forwarded as it
// arrives.
func (s *Server) UpdatesHandler(w http.ResponseWriter, r *http.Request) {
	clientID := getClientID(w, r)
	patches, detach := s.sessions.Attach(clientID)
	defer detach()

	sse := ds.NewSSE(w, r)

	ctx := r.Context()
	ticker := time.NewTicker(time.Second / store.DASHBOARD_FRAMERATE)
	defer ticker.Stop()

	rendered := make(map[string]uint64)
	for {
		select {
		case <-ctx.Done():
			return
		case html := <-patches:
			if err := sse.PatchElements(html); err != nil {
				s.logger.Debug("update stream closed", "client", clientID, "error", err)
				return
			}
		case <-ticker.C:
			err := s.renderer.OnTick(sse, rendered)
			if err != nil {
				s.logger.Debug("error running renderer on tick", "client", clientID, "error", err)
				return
			}
		}
	}
}
