package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"

	"huddle/api/internal/auth"
	"huddle/api/internal/identity"
	"huddle/api/internal/live"
	"huddle/api/internal/report"
	"huddle/api/internal/search"
	"huddle/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.service.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":     false,
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "ready"})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		session, err := s.service.SessionFromToken(token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"userName":      session.UserName,
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.URL.Path == "/api/profile" {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.Profile(r.Context(), session)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPut:
			var body struct {
				DisplayName string `json:"displayName"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			renewed, err := s.service.Rename(r.Context(), session, body.DisplayName)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, sessionPayload(renewed))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "collaborations" {
		switch {
		case len(parts) == 2:
			s.handleCollaborations(w, r, session)
		default:
			s.handleCollaboration(w, r, session, parts[2], parts[3:])
		}
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleCollaborations(w http.ResponseWriter, r *http.Request, session Session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	var body CreateCollaborationInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.CreateCollaboration(r.Context(), session, body)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (s *HTTPServer) handleCollaboration(w http.ResponseWriter, r *http.Request, session Session, collaborationID string, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		payload, err := s.service.View(r.Context(), session, collaborationID, viewParamsFromQuery(r))
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	switch parts[0] {
	case "events":
		if len(parts) == 1 && r.Method == http.MethodGet {
			s.handleEvents(w, r, session, collaborationID)
			return
		}
	case "pause", "resume", "end", "reopen":
		if len(parts) == 1 && r.Method == http.MethodPost {
			s.handleLifecycle(w, r, session, collaborationID, parts[0])
			return
		}
	case "prompt":
		if len(parts) == 1 && r.Method == http.MethodPut {
			var body struct {
				Prompt string `json:"prompt"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.writeAck(w, s.service.EditPrompt(r.Context(), session, collaborationID, body.Prompt))
			return
		}
	case "note-types":
		if len(parts) == 1 && r.Method == http.MethodPut {
			var body struct {
				AllowedNoteTypes []string `json:"allowedNoteTypes"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.writeAck(w, s.service.SetAllowedTypes(r.Context(), session, collaborationID, body.AllowedNoteTypes))
			return
		}
	case "author-names":
		if len(parts) == 1 && r.Method == http.MethodPut {
			var body struct {
				Show bool `json:"show"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.writeAck(w, s.service.SetShowAuthorNames(r.Context(), session, collaborationID, body.Show))
			return
		}
	case "join":
		if len(parts) == 1 && r.Method == http.MethodPost {
			var body struct {
				Email string `json:"email"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.RequestJoin(r.Context(), session, collaborationID, body.Email)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		}
	case "participants":
		s.handleParticipants(w, r, session, collaborationID, parts[1:])
		return
	case "notes":
		s.handleNotes(w, r, session, collaborationID, parts[1:])
		return
	case "report":
		s.handleReport(w, r, session, collaborationID, parts[1:])
		return
	case "search":
		if len(parts) == 1 && r.Method == http.MethodGet {
			s.handleSearch(w, r, session, collaborationID)
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleLifecycle(w http.ResponseWriter, r *http.Request, session Session, collaborationID, action string) {
	switch action {
	case "pause":
		s.writeAck(w, s.service.SetPaused(r.Context(), session, collaborationID, true))
	case "resume":
		s.writeAck(w, s.service.SetPaused(r.Context(), session, collaborationID, false))
	case "reopen":
		s.writeAck(w, s.service.Reopen(r.Context(), session, collaborationID))
	case "end":
		payload, err := s.service.End(r.Context(), session, collaborationID)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *HTTPServer) handleParticipants(w http.ResponseWriter, r *http.Request, session Session, collaborationID string, parts []string) {
	if len(parts) == 0 && r.Method == http.MethodGet {
		roster, err := s.service.Roster(r.Context(), session, collaborationID)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"participants": roster})
		return
	}
	if len(parts) == 2 && r.Method == http.MethodPost {
		userID := parts[0]
		switch parts[1] {
		case "approve":
			s.writeAck(w, s.service.SetParticipantStatus(r.Context(), session, collaborationID, userID, live.ParticipantApproved))
			return
		case "revoke":
			s.writeAck(w, s.service.SetParticipantStatus(r.Context(), session, collaborationID, userID, live.ParticipantRevoked))
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleNotes(w http.ResponseWriter, r *http.Request, session Session, collaborationID string, parts []string) {
	if len(parts) == 0 && r.Method == http.MethodPost {
		var body AddNoteInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.AddNote(r.Context(), session, collaborationID, body)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
		return
	}
	if len(parts) == 0 {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	noteID := parts[0]
	if len(parts) == 1 && r.Method == http.MethodPut {
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.writeAck(w, s.service.EditNote(r.Context(), session, collaborationID, noteID, body.Content))
		return
	}

	if len(parts) == 4 && parts[1] == "responses" && parts[3] == "react" && r.Method == http.MethodPost {
		index, err := strconv.Atoi(parts[2])
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid response index", nil)
			return
		}
		var body struct {
			Kind string `json:"kind"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.writeAck(w, s.service.ReactResponse(r.Context(), session, collaborationID, noteID, index, body.Kind))
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "react":
		var body struct {
			Kind string `json:"kind"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.writeAck(w, s.service.ReactNote(r.Context(), session, collaborationID, noteID, body.Kind))
	case "respond":
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.writeAck(w, s.service.AddResponse(r.Context(), session, collaborationID, noteID, body.Content))
	case "vote":
		var body struct {
			Selection []int `json:"selection"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.writeAck(w, s.service.VotePoll(r.Context(), session, collaborationID, noteID, body.Selection))
	case "close-poll":
		s.writeAck(w, s.service.ClosePoll(r.Context(), session, collaborationID, noteID))
	case "archive":
		s.writeAck(w, s.service.SetArchived(r.Context(), session, collaborationID, noteID, true))
	case "unarchive":
		s.writeAck(w, s.service.SetArchived(r.Context(), session, collaborationID, noteID, false))
	case "group":
		var body struct {
			ParentID string `json:"parentId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.writeAck(w, s.service.GroupNote(r.Context(), session, collaborationID, noteID, body.ParentID))
	case "ungroup":
		s.writeAck(w, s.service.UngroupNote(r.Context(), session, collaborationID, noteID))
	case "duplicate":
		var body struct {
			Duplicate *bool `json:"duplicate"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		duplicate := true
		if body.Duplicate != nil {
			duplicate = *body.Duplicate
		}
		s.writeAck(w, s.service.SetDuplicate(r.Context(), session, collaborationID, noteID, duplicate))
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request, session Session, collaborationID string, parts []string) {
	if len(parts) == 0 && r.Method == http.MethodGet {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = string(report.FormatHTML)
		}
		artifact, err := s.service.ExportReport(r.Context(), session, collaborationID, format)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		w.Header().Set("Content-Type", artifact.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(artifact.Data)
		return
	}
	if len(parts) == 1 && parts[0] == "archived" && r.Method == http.MethodGet {
		if err := s.service.AuthorizeViewer(r.Context(), collaborationID, session.UserID); err != nil {
			s.writeMappedError(w, err)
			return
		}
		markdown, commit, err := s.service.ArchivedReport(collaborationID)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"markdown":  string(markdown),
			"commit":    commit.Hash,
			"createdAt": commit.CreatedAt,
		})
		return
	}
	if len(parts) == 1 && parts[0] == "history" && r.Method == http.MethodGet {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		payload, err := s.service.ReportHistory(r.Context(), session, collaborationID, limit)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session, collaborationID string) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	payload, err := s.service.SearchNotes(r.Context(), session, collaborationID, search.Query{
		Text:       query.Get("q"),
		FilterType: query.Get("type"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleEvents streams the derived view over SSE. Every change signal from
// the live store triggers a full re-read and re-derivation; the client
// always receives a whole replacement snapshot.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request, session Session, collaborationID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Streaming not supported", nil)
		return
	}
	if err := s.service.AuthorizeViewer(r.Context(), collaborationID, session.UserID); err != nil {
		s.writeMappedError(w, err)
		return
	}

	params := viewParamsFromQuery(r)

	// Coalescing signal: bursts of changes collapse into one re-derivation.
	refresh := make(chan struct{}, 1)
	notify := func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}

	liveStore := s.service.Live()
	cancelCollab, err := liveStore.SubscribeCollaboration(collaborationID, func(live.CollabSnapshot) { notify() })
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	defer cancelCollab()
	cancelNotes, err := liveStore.SubscribeNotes(collaborationID, func([]live.Note) { notify() })
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	defer cancelNotes()
	cancelParticipants, err := liveStore.SubscribeParticipants(collaborationID, func([]live.Participant) { notify() })
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	defer cancelParticipants()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-refresh:
			payload, err := s.service.View(r.Context(), session, collaborationID, params)
			if err != nil {
				if errors.Is(err, live.ErrNotFound) {
					_, _ = fmt.Fprint(w, "event: gone\ndata: {}\n\n")
					flusher.Flush()
					return
				}
				continue
			}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: view\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func viewParamsFromQuery(r *http.Request) ViewParams {
	query := r.URL.Query()
	return ViewParams{
		Filter:         query.Get("filter"),
		Sort:           query.Get("sort"),
		SelectedTypes:  splitCommaList(query.Get("types")),
		SeenTypes:      splitCommaList(query.Get("seen")),
		ExpandedGroups: splitCommaList(query.Get("expanded")),
		RespondingTo:   query.Get("respondingTo"),
	}
}

func splitCommaList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignUp(r.Context(), body.Email, body.Password, body.DisplayName)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "SIGNUP_FAILED", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":     session.Token,
		"userId":    session.UserID,
		"userName":  session.UserName,
		"expiresAt": session.ExpiresAt,
	}
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) writeAck(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, live.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, git.ErrRepositoryNotExists):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil
	case errors.Is(err, report.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is not available on this server", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
