package network

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
)

// EventHistory is the source of a nation's past events, in append order.
type EventHistory interface {
	GetByNation(ctx context.Context, nationID string) ([]events.GameEvent, error)
}

// LogHistory serves replays from the in-memory event log.
type LogHistory struct {
	Log *events.EventLog
}

func (l LogHistory) GetByNation(_ context.Context, nationID string) ([]events.GameEvent, error) {
	return l.Log.GetByNation(nationID), nil
}

// ReplayHandler provides the event replay API.
type ReplayHandler struct {
	history EventHistory
	logger  *logger.Logger
	now     func() time.Time
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(history EventHistory, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{
		history: history,
		logger:  log.With("component", "replay"),
		now:     time.Now,
	}
}

// ReplayResponse is the API response for an event replay.
type ReplayResponse struct {
	NationID    string             `json:"nation_id"`
	TotalEvents int                `json:"total_events"`
	Since       int                `json:"since"`
	Next        int                `json:"next"` // Pass as since= to fetch only newer events
	FilteredBy  string             `json:"filtered_by,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleReplay returns the events of a nation after an offset.
// GET /api/nations/{id}/events?since=N&type=T
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	nationID := r.PathValue("id")

	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "since must be a non-negative integer", http.StatusBadRequest)
			return
		}
		since = n
	}
	eventType := r.URL.Query().Get("type")

	all, err := rh.history.GetByNation(r.Context(), nationID)
	if err != nil {
		rh.logger.Error("failed to load event history", "nation_id", nationID, "err", err)
		jsonError(w, "failed to load events", http.StatusInternalServerError)
		return
	}

	selected := make([]events.GameEvent, 0)
	if since < len(all) {
		for _, e := range all[since:] {
			if eventType != "" && string(e.Type) != eventType {
				continue
			}
			selected = append(selected, e)
		}
	}

	response := ReplayResponse{
		NationID:    nationID,
		TotalEvents: len(selected),
		Since:       since,
		Next:        len(all),
		GeneratedAt: rh.now().UTC().Format(time.RFC3339),
		Events:      selected,
	}
	if eventType != "" {
		response.FilteredBy = eventType
	}

	rh.logger.Debug("replay served", "nation_id", nationID, "events", len(selected))
	jsonSuccess(w, http.StatusOK, response)
}

// HandleStats returns per-type event counts for a nation.
// GET /api/nations/{id}/stats
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	nationID := r.PathValue("id")
	all, err := rh.history.GetByNation(r.Context(), nationID)
	if err != nil {
		rh.logger.Error("failed to load event history", "nation_id", nationID, "err", err)
		jsonError(w, "failed to load events", http.StatusInternalServerError)
		return
	}

	stats := map[string]int{"total_events": len(all)}
	for _, e := range all {
		stats[string(e.Type)]++
	}

	jsonSuccess(w, http.StatusOK, map[string]interface{}{
		"nation_id":    nationID,
		"generated_at": rh.now().UTC().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/nations/{id}/events", rh.HandleReplay)
	mux.HandleFunc("GET /api/nations/{id}/stats", rh.HandleStats)
}
