package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/cache"
	"github.com/hamed0406/servicewatch/internal/domain"
	"github.com/hamed0406/servicewatch/internal/httpapi/middleware"
	"github.com/hamed0406/servicewatch/internal/repo"
	"github.com/hamed0406/servicewatch/internal/scan"
)

// AlertSource exposes the alert manager's raised-alert log.
type AlertSource interface {
	Alerts() []domain.Alert
}

// Server serves the status view data contract: per service the latest
// result plus windowed uptime stats. It reads the cache first and falls
// back to the store when the cache is cold (fresh start).
type Server struct {
	Logger   *zap.Logger
	Services []domain.ServiceDefinition
	Store    repo.ResultStore
	Cache    *cache.Cache
	Alerts   AlertSource
	Scanner  *scan.Scanner
	Window   time.Duration

	hub *hub
}

func NewServer(
	l *zap.Logger,
	services []domain.ServiceDefinition,
	store repo.ResultStore,
	c *cache.Cache,
	alerts AlertSource,
	scanner *scan.Scanner,
	window time.Duration,
) *Server {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Server{
		Logger:   l,
		Services: services,
		Store:    store,
		Cache:    c,
		Alerts:   alerts,
		Scanner:  scanner,
		Window:   window,
		hub:      newHub(l),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(240, 120))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/services/{name}/history", s.handleHistory)
	r.Get("/api/alerts", s.handleAlerts)
	r.Post("/api/scan", s.handleScan)
	r.Get("/api/live", s.handleLive)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// PublishCycle pushes a joined cycle batch to live subscribers. Wired
// as the engine's publisher.
func (s *Server) PublishCycle(batch []domain.CheckResult) {
	s.hub.publish(batch)
}

// ServiceStatus is the per-service tuple the rendering collaborator
// consumes.
type ServiceStatus struct {
	Name   string              `json:"name"`
	Type   domain.ServiceType  `json:"type"`
	Latest *domain.CheckResult `json:"latest"`
	Stats  domain.UptimeStats  `json:"stats"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := make([]ServiceStatus, 0, len(s.Services))
	for _, def := range s.Services {
		st := ServiceStatus{Name: def.Name, Type: def.Type}

		if latest, ok := s.Cache.Latest(def.Name); ok {
			st.Latest = &latest
		} else if hist, err := s.Store.History(r.Context(), def.Name, 1); err == nil && len(hist) > 0 {
			st.Latest = &hist[0]
		}

		stats, err := s.Store.UptimeStats(r.Context(), def.Name, s.Window)
		if err != nil {
			// Durable store unavailable: fall back to the in-memory
			// approximation over the cached window.
			s.Logger.Warn("stats_error", zap.String("service", def.Name), zap.Error(err))
			win := s.Cache.Window(def.Name)
			stats = domain.UptimeStats{TotalChecks: len(win), UptimePercent: s.Cache.Uptime(def.Name)}
			var latSum float64
			var latN int
			for _, cr := range win {
				if cr.Up() {
					stats.SuccessCount++
				}
				if cr.ResponseTimeMS != nil {
					latSum += *cr.ResponseTimeMS
					latN++
				}
			}
			if latN > 0 {
				stats.AvgLatencyMS = latSum / float64(latN)
			}
		}
		st.Stats = stats
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.knownService(name) {
		http.Error(w, "unknown service", http.StatusNotFound)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	hist, err := s.Store.History(r.Context(), name, limit)
	if err != nil {
		s.Logger.Warn("history_error", zap.String("service", name), zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if hist == nil {
		hist = []domain.CheckResult{}
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.Alerts == nil {
		writeJSON(w, http.StatusOK, []domain.Alert{})
		return
	}
	alerts := s.Alerts.Alerts()
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

type scanPayload struct {
	Host  string `json:"host"`
	Ports []int  `json:"ports,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.Scanner == nil {
		http.Error(w, "scanning disabled", http.StatusNotImplemented)
		return
	}
	var p scanPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Host == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	for _, port := range p.Ports {
		if port < 1 || port > 65535 {
			http.Error(w, "port out of range", http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.Scanner.Scan(r.Context(), p.Host, p.Ports))
}

func (s *Server) knownService(name string) bool {
	for _, def := range s.Services {
		if def.Name == name {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
