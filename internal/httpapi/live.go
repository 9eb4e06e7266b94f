package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/domain"
)

const liveWriteTimeout = 5 * time.Second

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

// hub fans each committed cycle batch out to websocket subscribers. A
// slow subscriber drops batches rather than stalling the publisher.
type hub struct {
	log *zap.Logger

	mu   sync.Mutex
	subs map[chan []domain.CheckResult]struct{}
}

func newHub(log *zap.Logger) *hub {
	return &hub{log: log, subs: make(map[chan []domain.CheckResult]struct{})}
}

func (h *hub) publish(batch []domain.CheckResult) {
	cp := make([]domain.CheckResult, len(batch))
	copy(cp, batch)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- cp:
		default:
		}
	}
}

func (h *hub) subscribe() chan []domain.CheckResult {
	ch := make(chan []domain.CheckResult, 4)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan []domain.CheckResult) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	// Send what we already know so a fresh client isn't blank until the
	// next cycle lands.
	initial := make([]domain.CheckResult, 0, len(s.Services))
	for _, def := range s.Services {
		if latest, ok := s.Cache.Latest(def.Name); ok {
			initial = append(initial, latest)
		}
	}
	if len(initial) > 0 {
		if err := writeBatch(conn, initial); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case batch := <-ch:
			if err := writeBatch(conn, batch); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeBatch(conn *websocket.Conn, batch []domain.CheckResult) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(batch)
}
