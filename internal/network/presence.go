package network

import (
	"net/http"
	"time"
)

// PresenceHandler reports who is watching which nation.
type PresenceHandler struct {
	hub *Hub
}

func NewPresenceHandler(hub *Hub) *PresenceHandler {
	return &PresenceHandler{hub: hub}
}

// HandleNation returns the number of connected clients of one nation.
// GET /api/nations/{id}/presence
func (ph *PresenceHandler) HandleNation(w http.ResponseWriter, r *http.Request) {
	nationID := r.PathValue("id")
	connected := ph.hub.Connected(nationID)
	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"nation_id":    nationID,
		"online_count": connected,
		"full":         connected >= ph.hub.tuning.MaxClientsPerNation,
		"timestamp":    time.Now().Unix(),
	})
}

// HandleAll lists every nation with connected clients.
// GET /api/presence
func (ph *PresenceHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"nations":   ph.hub.Nations(),
		"timestamp": time.Now().Unix(),
	})
}

func (ph *PresenceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/nations/{id}/presence", ph.HandleNation)
	mux.HandleFunc("GET /api/presence", ph.HandleAll)
}
