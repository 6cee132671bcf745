package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MRamiBalles/Nationship/internal/engine"
	"github.com/MRamiBalles/Nationship/internal/infra/storage"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/survey"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 16

// Recapper builds the "while you were away" summary of a nation.
type Recapper interface {
	GenerateRecap(ctx context.Context, nationID string, since time.Time) (*storage.Recap, error)
}

// API serves the REST endpoints of the nationship server.
type API struct {
	service  *Service
	profiles storage.ProfileRepository
	builder  *survey.Builder
	recaps   Recapper
	logger   *logger.Logger
}

// NewAPI creates the REST handlers. profiles and recaps may be nil, which disables their routes.
func NewAPI(service *Service, profiles storage.ProfileRepository, builder *survey.Builder, recaps Recapper, log *logger.Logger) *API {
	if builder == nil {
		builder = survey.NewBuilder(nil)
	}
	return &API{
		service:  service,
		profiles: profiles,
		builder:  builder,
		recaps:   recaps,
		logger:   log.With("component", "api"),
	}
}

// RegisterRoutes sets up the API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/nations/{id}", a.HandleSnapshot)
	mux.HandleFunc("POST /api/nations/{id}/messages", a.HandleMessage)
	mux.HandleFunc("POST /api/nations/{id}/actions/{action}", a.HandleAction)
	mux.HandleFunc("POST /api/nations/{id}/demo/{op}", a.HandleDemo)
	mux.HandleFunc("POST /api/nations/{id}/autochat", a.HandleAutoChat)
	if a.recaps != nil {
		mux.HandleFunc("GET /api/nations/{id}/recap", a.HandleRecap)
	}
	if a.profiles != nil {
		mux.HandleFunc("POST /api/survey", a.HandleSurvey)
		mux.HandleFunc("GET /api/profiles/{id}", a.HandleProfile)
	}
}

// HandleSnapshot returns the current state of a nation.
// GET /api/nations/{id}
func (a *API) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, http.StatusOK, snap)
}

type messageRequest struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// HandleMessage appends a chat message.
// POST /api/nations/{id}/messages {text, sender}
func (a *API) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(w, r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a.run(w, r, Command{Type: string(engine.ActionSendMessage), Text: req.Text, Sender: req.Sender})
}

type actionRequest struct {
	Name string `json:"name"`
}

// HandleAction runs battle, raid, diplomacy, expand, fortify, reset or rename.
// POST /api/nations/{id}/actions/{action}
func (a *API) HandleAction(w http.ResponseWriter, r *http.Request) {
	kind, err := engine.ParseActionKind(r.PathValue("action"))
	if err != nil || kind == engine.ActionSendMessage || kind == engine.ActionTick {
		jsonError(w, "unknown action "+r.PathValue("action"), http.StatusBadRequest)
		return
	}

	cmd := Command{Type: string(kind)}
	if kind == engine.ActionRename {
		var req actionRequest
		if err := decode(w, r, &req); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		cmd.Text = req.Name
	}
	a.run(w, r, cmd)
}

// HandleDemo starts or stops the scripted chatbot demo.
// POST /api/nations/{id}/demo/{start|stop}
func (a *API) HandleDemo(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("op") {
	case "start":
		a.run(w, r, Command{Type: CmdStartDemo})
	case "stop":
		a.run(w, r, Command{Type: CmdStopDemo})
	default:
		jsonError(w, "unknown demo operation "+r.PathValue("op"), http.StatusBadRequest)
	}
}

// HandleAutoChat toggles chatbot auto-chat.
// POST /api/nations/{id}/autochat
func (a *API) HandleAutoChat(w http.ResponseWriter, r *http.Request) {
	a.run(w, r, Command{Type: CmdToggleAutoChat})
}

// HandleRecap summarises what happened to a nation since a point in time.
// GET /api/nations/{id}/recap?since=RFC3339 (default: the last 24 hours)
func (a *API) HandleRecap(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			jsonError(w, "since must be an RFC3339 time", http.StatusBadRequest)
			return
		}
		since = t
	}
	recap, err := a.recaps.GenerateRecap(r.Context(), r.PathValue("id"), since)
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, http.StatusOK, recap)
}

// HandleSurvey builds a profile from completed answers and stores it.
// POST /api/survey
func (a *API) HandleSurvey(w http.ResponseWriter, r *http.Request) {
	var answers survey.Answers
	if err := decode(w, r, &answers); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	profile, err := a.builder.Build(answers)
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.profiles.Save(r.Context(), profile); err != nil {
		a.fail(w, err)
		return
	}
	a.logger.Event("PROFILE_CREATED", profile.UserID, profile.Name)
	jsonSuccess(w, http.StatusCreated, profile)
}

// HandleProfile returns a stored profile.
// GET /api/profiles/{id}
func (a *API) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := a.profiles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, http.StatusOK, profile)
}

func (a *API) run(w http.ResponseWriter, r *http.Request, cmd Command) {
	res, err := a.service.Handle(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		a.fail(w, err)
		return
	}
	jsonSuccess(w, http.StatusOK, res)
}

// fail maps domain errors onto HTTP status codes.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "err", err)
	}
	jsonError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInsufficientResources):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidAction),
		errors.Is(err, survey.ErrIncomplete),
		errors.Is(err, survey.ErrInvalidAnswer):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": strings.TrimSpace(message)})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
