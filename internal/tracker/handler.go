// HTTP handlers for the tracker service.
//
// All routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET  /applications                     → list user's applications (?status= filter)
//	POST /applications                     → create application
//	GET  /applications/{id}                → single application
//	POST /applications/{id}/update         → partial field edit
//	POST /applications/{id}/move           → pipeline status transition
//	POST /applications/{id}/delete         → delete (cascades children)
//	POST /applications/{id}/note           → add note
//	GET  /applications/{id}/notes          → list notes
//	POST /applications/{id}/followup       → log a follow-up
//	GET  /applications/{id}/followups      → list follow-ups
//	GET  /applications/{id}/events         → audit timeline, newest first
//	POST /notes/{id}/delete                → delete note
//	GET  /analytics                        → funnel/platform/role metrics
//	GET  /insights                         → career insights (?all=1 for uncapped)
//	GET  /suggestions                      → filtered suggestions
//	POST /suggestions/dismiss|snooze|clear → suggestion ledger actions
//	GET  /notifications                    → reminder-job notifications
//	POST /notifications/{id}/read          → mark notification read
//	GET  /export/csv                       → CSV snapshot with follow-up counts
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trackline/tracker-service/internal/event"
	"trackline/tracker-service/internal/insight"
	"trackline/tracker-service/internal/pipeline"
	"trackline/tracker-service/internal/store"
)

// Display cap for GET /insights: up to 2 insights per tone, 5 total.
const (
	insightsPerTone = 2
	insightsTotal   = 5
)

// Handler holds shared dependencies.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all tracker-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/applications", h.handleApplications)
	mux.HandleFunc("/applications/", h.handleApplicationSubroutes)
	mux.HandleFunc("/analytics", h.getAnalytics)
	mux.HandleFunc("/insights", h.getInsights)
	mux.HandleFunc("/suggestions", h.getSuggestions)
	mux.HandleFunc("/suggestions/", h.handleSuggestionAction)
	mux.HandleFunc("/notes/", h.handleNoteAction)
	mux.HandleFunc("/notifications", h.listNotifications)
	mux.HandleFunc("/notifications/", h.handleNotificationAction)
	mux.HandleFunc("/export/csv", h.exportCSV)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

func (h *Handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listApplications(w, r)
	case http.MethodPost:
		h.createApplication(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleApplicationSubroutes handles /applications/{id} and
// /applications/{id}/{action}.
func (h *Handler) handleApplicationSubroutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch len(parts) {
	case 2:
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getApplication(w, r, parts[1])
	case 3:
		h.dispatchApplicationAction(w, r, parts[1], parts[2])
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

func (h *Handler) dispatchApplicationAction(w http.ResponseWriter, r *http.Request, appID, action string) {
	type route struct {
		method  string
		handler func(http.ResponseWriter, *http.Request, string)
	}
	routes := map[string]route{
		"update":    {http.MethodPost, h.updateApplication},
		"move":      {http.MethodPost, h.moveApplication},
		"delete":    {http.MethodPost, h.deleteApplication},
		"note":      {http.MethodPost, h.addNote},
		"notes":     {http.MethodGet, h.listNotes},
		"followup":  {http.MethodPost, h.addFollowUp},
		"followups": {http.MethodGet, h.listFollowUps},
		"events":    {http.MethodGet, h.listEvents},
	}
	rt, ok := routes[action]
	if !ok {
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		return
	}
	if r.Method != rt.method {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rt.handler(w, r, appID)
}

// ─── Application handlers ─────────────────────────────────────────────────────

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	apps, err := h.svc.ListApplications(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, apps)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	app, err := h.svc.GetApplication(r.Context(), userID, appID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]any{
		"application":       app,
		"validNextStatuses": pipeline.ValidNextStatuses(app.Status),
	})
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Company         string  `json:"company"`
		Role            string  `json:"role"`
		Platform        *string `json:"platform"`
		AppliedDate     string  `json:"appliedDate"`
		Deadline        string  `json:"deadline"`
		ReminderEnabled bool    `json:"reminderEnabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	in := ApplicationInput{
		Company:         body.Company,
		Role:            body.Role,
		Platform:        body.Platform,
		ReminderEnabled: body.ReminderEnabled,
	}
	if body.AppliedDate != "" {
		d, err := time.Parse(event.DateFormat, body.AppliedDate)
		if err != nil {
			jsonError(w, "appliedDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		in.AppliedDate = d
	}
	if body.Deadline != "" {
		d, err := time.Parse(event.DateFormat, body.Deadline)
		if err != nil {
			jsonError(w, "deadline must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		in.Deadline = &d
	}

	app, err := h.svc.CreateApplication(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonStatus(w, app, http.StatusCreated)
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Company       *string `json:"company"`
		Role          *string `json:"role"`
		Platform      *string `json:"platform"`
		AppliedDate   *string `json:"appliedDate"`
		Deadline      *string `json:"deadline"`
		ClearDeadline bool    `json:"clearDeadline"`
		Reminder      *bool   `json:"reminderEnabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	patch := ApplicationPatch{
		Company:       body.Company,
		Role:          body.Role,
		Platform:      body.Platform,
		ClearDeadline: body.ClearDeadline,
		Reminder:      body.Reminder,
	}
	if body.AppliedDate != nil {
		d, err := time.Parse(event.DateFormat, *body.AppliedDate)
		if err != nil {
			jsonError(w, "appliedDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		patch.AppliedDate = &d
	}
	if body.Deadline != nil {
		d, err := time.Parse(event.DateFormat, *body.Deadline)
		if err != nil {
			jsonError(w, "deadline must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		patch.Deadline = &d
	}

	app, err := h.svc.UpdateApplication(r.Context(), userID, appID, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) moveApplication(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		NewStatus string `json:"newStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewStatus == "" {
		jsonError(w, "body must contain newStatus", http.StatusBadRequest)
		return
	}

	app, err := h.svc.MoveApplication(r.Context(), userID, appID, body.NewStatus)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteApplication(r.Context(), userID, appID); err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]string{"deleted": appID})
}

// ─── Notes / follow-ups / events ─────────────────────────────────────────────

func (h *Handler) addNote(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	note, err := h.svc.AddNote(r.Context(), userID, appID, body.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonStatus(w, note, http.StatusCreated)
}

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notes, err := h.svc.ListNotes(r.Context(), userID, appID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, notes)
}

func (h *Handler) addFollowUp(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Note         *string `json:"note"`
		NextFollowUp string  `json:"nextFollowUp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	var next *time.Time
	if body.NextFollowUp != "" {
		d, err := time.Parse(event.DateFormat, body.NextFollowUp)
		if err != nil {
			jsonError(w, "nextFollowUp must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		next = &d
	}

	f, err := h.svc.AddFollowUp(r.Context(), userID, appID, body.Note, next)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonStatus(w, f, http.StatusCreated)
}

func (h *Handler) listFollowUps(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	followUps, err := h.svc.ListFollowUps(r.Context(), userID, appID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, followUps)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	events, err := h.svc.ListEvents(r.Context(), userID, appID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, events)
}

// handleNoteAction handles POST /notes/{id}/delete.
func (h *Handler) handleNoteAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "delete" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	if err := h.svc.DeleteNote(r.Context(), userID, parts[1]); err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]string{"deleted": parts[1]})
}

// ─── Analytics / insights / suggestions ──────────────────────────────────────

func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := h.svc.Analytics(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, snap)
}

func (h *Handler) getInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	insights, err := h.svc.Insights(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if r.URL.Query().Get("all") != "1" {
		insights = insight.TopBalanced(insights, insightsPerTone, insightsTotal)
	}
	jsonOK(w, insights)
}

func (h *Handler) getSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	suggestions, err := h.svc.Suggestions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, suggestions)
}

// handleSuggestionAction handles POST /suggestions/dismiss|snooze|clear.
func (h *Handler) handleSuggestionAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	action := parts[1]

	var body struct {
		Key         string `json:"key"`
		SnoozeUntil string `json:"snoozeUntil"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var err error
	switch action {
	case "dismiss":
		err = h.svc.DismissSuggestion(r.Context(), userID, body.Key)
	case "snooze":
		until, perr := time.Parse(time.RFC3339, body.SnoozeUntil)
		if perr != nil {
			jsonError(w, "snoozeUntil must be RFC 3339", http.StatusBadRequest)
			return
		}
		err = h.svc.SnoozeSuggestion(r.Context(), userID, body.Key, until)
	case "clear":
		err = h.svc.ClearSuggestionAction(r.Context(), userID, body.Key)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]string{"key": body.Key, "action": action})
}

// ─── Notifications / export ──────────────────────────────────────────────────

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	notifs, err := h.svc.ListNotifications(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, notifs)
}

// handleNotificationAction handles POST /notifications/{id}/read.
func (h *Handler) handleNotificationAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "read" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	if err := h.svc.MarkNotificationRead(r.Context(), userID, parts[1]); err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]string{"read": parts[1]})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="applications.csv"`)
	if err := h.svc.ExportCSV(r.Context(), userID, w); err != nil {
		// Headers may already be out; log instead of switching to JSON.
		slog.Warn("csv export failed", "userId", userID, "err", err)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// requireUser extracts the x-user-id header, writing a 401 when absent.
// Auth short-circuits before any persistence call.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// writeServiceError maps service errors to HTTP responses. Transition
// errors carry their machine-readable kind so the UI can branch on it.
func writeServiceError(w http.ResponseWriter, err error) {
	var terr *pipeline.TransitionError
	if errors.As(err, &terr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": terr.Error(),
			"kind":  string(terr.Kind),
		})
		return
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		jsonError(w, verr.Msg, http.StatusBadRequest)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, store.ErrConflict) {
		jsonError(w, "application was modified concurrently, retry", http.StatusConflict)
		return
	}
	slog.Error("internal error", "err", err)
	jsonError(w, "internal error", http.StatusInternalServerError)
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, v, http.StatusOK)
}

func jsonStatus(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
