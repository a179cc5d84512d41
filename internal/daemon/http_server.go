package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/worldhost/internal/config"
	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/metrics"
	"git.home.luguber.info/inful/worldhost/internal/world"
)

// HTTPServer exposes the admin API: health, metrics, read access to the
// repositories, and the archive/migrate/reload triggers.
type HTTPServer struct {
	config *config.Config
	daemon *Daemon
	server *http.Server
}

// NewHTTPServer creates the admin API server.
func NewHTTPServer(cfg *config.Config, daemon *Daemon) *HTTPServer {
	return &HTTPServer{config: cfg, daemon: daemon}
}

// Start binds the listener and serves in the background. The port is bound
// eagerly so a taken address fails startup instead of logging later.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("bind admin address %s: %w", s.config.HTTP.Addr, err)
	}

	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Admin API listening", "addr", s.config.HTTP.Addr)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin API server error", logfields.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.HTTPHandler(s.daemon.registry))

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/worlds", s.handleListWorlds)
	mux.HandleFunc("GET /api/worlds/{uuid}", s.handleGetWorld)
	mux.HandleFunc("GET /api/worlds/{uuid}/portals", s.handleWorldPortals)
	mux.HandleFunc("GET /api/worlds/{uuid}/events", s.handleWorldEvents)
	mux.HandleFunc("GET /api/spotlight", s.handleSpotlight)

	mux.HandleFunc("POST /api/archive-expired", s.handleArchiveExpired)
	mux.HandleFunc("POST /api/migrate", s.handleMigrate)
	mux.HandleFunc("POST /api/reload", s.handleReload)

	return mux
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": s.daemon.GetStatus(),
	})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         s.daemon.GetStatus(),
		"uptime_seconds": int(time.Since(s.daemon.GetStartTime()).Seconds()),
		"worlds":         s.daemon.worlds.Count(),
		"portals":        s.daemon.portals.Count(),
	})
}

// worldSummary is the list-view projection of a world record.
type worldSummary struct {
	UUID         string             `json:"uuid"`
	Name         string             `json:"name"`
	Owner        string             `json:"owner"`
	PublishLevel world.PublishLevel `json:"publish_level"`
	Archived     bool               `json:"archived"`
}

func (s *HTTPServer) handleListWorlds(w http.ResponseWriter, r *http.Request) {
	records := s.daemon.worlds.FindAll()
	summaries := make([]worldSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, worldSummary{
			UUID:         rec.UUID,
			Name:         rec.Name,
			Owner:        rec.Owner,
			PublishLevel: rec.PublishLevel,
			Archived:     rec.Archived,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"worlds": summaries})
}

func (s *HTTPServer) handleGetWorld(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.daemon.worlds.FindByUUID(r.PathValue("uuid"))
	if !ok {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uuid":             rec.UUID,
		"name":             rec.Name,
		"description":      rec.Description,
		"owner":            rec.Owner,
		"members":          rec.Members,
		"moderators":       rec.Moderators,
		"publish_level":    rec.PublishLevel,
		"archived":         rec.Archived,
		"expiration_date":  rec.ExpirationDate,
		"border_expansion": rec.BorderExpansion,
		"point_cost":       rec.PointCost,
		"created_at":       rec.CreatedAt,
		"recent_visitors":  rec.RecentVisitorTotal(),
		"favorite_count":   rec.FavoriteCount,
		"tags":             rec.Tags,
		"directory":        rec.DirectoryName(),
	})
}

func (s *HTTPServer) handleWorldPortals(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.daemon.worlds.FindByUUID(r.PathValue("uuid"))
	if !ok {
		writeError(w, http.StatusNotFound, "world not found")
		return
	}
	type portalView struct {
		UUID            string `json:"uuid"`
		X               int    `json:"x"`
		Y               int    `json:"y"`
		Z               int    `json:"z"`
		Kind            string `json:"kind"`
		DestWorld       string `json:"dest_world,omitempty"`
		DestServerWorld string `json:"dest_server_world,omitempty"`
	}
	records := s.daemon.portals.FindByWorld(rec.DirectoryName())
	views := make([]portalView, 0, len(records))
	for _, p := range records {
		views = append(views, portalView{
			UUID:            p.UUID,
			X:               p.X,
			Y:               p.Y,
			Z:               p.Z,
			Kind:            string(p.Kind),
			DestWorld:       p.DestWorld,
			DestServerWorld: p.DestServerWorld,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"portals": views})
}

func (s *HTTPServer) handleWorldEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("uuid")
	events, err := s.daemon.events.GetByWorldID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read events")
		slog.Error("Failed to read lifecycle events",
			logfields.WorldID(id),
			logfields.Error(err))
		return
	}

	type eventView struct {
		Type      string          `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			Type:      e.Type(),
			Timestamp: e.Timestamp(),
			Payload:   json.RawMessage(e.Payload()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": views})
}

func (s *HTTPServer) handleSpotlight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"worlds": s.daemon.spotlight.List(),
	})
}

func (s *HTTPServer) handleArchiveExpired(w http.ResponseWriter, r *http.Request) {
	report := s.daemon.ArchiveExpired(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     report.Total,
		"succeeded": report.Succeeded,
	})
}

func (s *HTTPServer) handleMigrate(w http.ResponseWriter, r *http.Request) {
	legacyDir := r.URL.Query().Get("dir")
	if legacyDir == "" {
		writeError(w, http.StatusBadRequest, "missing dir parameter")
		return
	}

	report, err := s.daemon.Migrate(legacyDir, r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     report.Total,
		"succeeded": report.Succeeded,
	})
}

func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", logfields.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
