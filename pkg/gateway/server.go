package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxbridge-ai/voxbridge/pkg/gateway/config"
)

// Server wires the gateway routes and the idle-session reaper around
// one SessionCore.
type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	core    SessionCore
	metrics *Metrics
	mux     *http.ServeMux

	systemPrompt string
	now          func() time.Time
}

func New(cfg config.Config, core SessionCore, metrics *Metrics, systemPrompt string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Server{
		cfg:          cfg,
		logger:       logger,
		core:         core,
		metrics:      metrics,
		mux:          http.NewServeMux(),
		systemPrompt: systemPrompt,
		now:          time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/live", LiveHandler{
		Core:            s.core,
		Metrics:         s.metrics,
		Logger:          s.logger,
		SystemPrompt:    s.systemPrompt,
		PingInterval:    s.cfg.WSPingInterval,
		WriteTimeout:    s.cfg.WSWriteTimeout,
		MaxMessageBytes: s.cfg.MaxMessageBytes,
	})
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/sessions", s.handleSessions)
	s.mux.Handle("/metrics", s.metrics.Handler())
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type sessionInfo struct {
	ID           string    `json:"id"`
	LastActivity time.Time `json:"lastActivity"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ids := s.core.ActiveSessions()
	sessions := make([]sessionInfo, 0, len(ids))
	for _, id := range ids {
		info := sessionInfo{ID: id}
		if last, ok := s.core.LastActivityTime(id); ok {
			info.LastActivity = last
		}
		sessions = append(sessions, info)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// reapIdleSessions force-closes sessions whose last activity is older
// than the idle timeout. Returns how many were reaped.
func (s *Server) reapIdleSessions(now time.Time) int {
	reaped := 0
	for _, id := range s.core.ActiveSessions() {
		last, ok := s.core.LastActivityTime(id)
		if !ok {
			continue
		}
		if now.Sub(last) <= s.cfg.IdleSessionTimeout {
			continue
		}
		s.logger.Info("reaping idle session", "session_id", id, "idle", now.Sub(last))
		s.core.ForceCloseSession(id)
		reaped++
	}
	return reaped
}

// Run serves until ctx is canceled, then drains: stop accepting, force
// close remaining sessions, bounded shutdown wait.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("gateway listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.reapIdleSessions(s.now())
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		for _, id := range s.core.ActiveSessions() {
			s.core.ForceCloseSession(id)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
