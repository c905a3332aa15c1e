package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"huddle/api/internal/archive"
	"huddle/api/internal/auth"
	"huddle/api/internal/config"
	"huddle/api/internal/identity"
	"huddle/api/internal/live"
	"huddle/api/internal/report"
	"huddle/api/internal/search"
	"huddle/api/internal/store"
	"huddle/api/internal/util"
	"huddle/api/internal/view"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	ExpiresAt time.Time
}

type CreateCollaborationInput struct {
	Title            string   `json:"title"`
	Prompt           string   `json:"prompt"`
	AllowedNoteTypes []string `json:"allowedNoteTypes"`
	ShowAuthorNames  *bool    `json:"showAuthorNames"`
}

type AddNoteInput struct {
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	Assignee     string   `json:"assignee"`
	DueDate      string   `json:"dueDate"`
	PollOptions  []string `json:"pollOptions"`
	PollMultiple bool     `json:"pollMultiple"`
}

type ViewParams struct {
	Filter         string
	Sort           string
	SelectedTypes  []string
	SeenTypes      []string
	ExpandedGroups []string
	RespondingTo   string
}

// artifactStore is the slice of the relational store the service needs for
// the archived-report index.
type artifactStore interface {
	InsertReportArtifact(ctx context.Context, artifact store.ReportArtifact) error
	ListReportArtifacts(ctx context.Context, collaborationID string) ([]store.ReportArtifact, error)
	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	live     *live.Store
	accounts artifactStore
	identity *identity.Service
	archives *archive.Service
	uploader *archive.Uploader
	search   *search.Service
}

func New(cfg config.Config, liveStore *live.Store, accounts artifactStore, identitySvc *identity.Service, archives *archive.Service, uploader *archive.Uploader, searchSvc *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		live:     liveStore,
		accounts: accounts,
		identity: identitySvc,
		archives: archives,
		uploader: uploader,
		search:   searchSvc,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.live.Ping(ctx); err != nil {
		return fmt.Errorf("live store: %w", err)
	}
	if s.accounts != nil {
		if err := s.accounts.Ping(ctx); err != nil {
			return fmt.Errorf("account store: %w", err)
		}
	}
	return nil
}

// Live exposes the underlying snapshot store to the SSE layer.
func (s *Service) Live() *live.Store {
	return s.live
}

// --- sessions ---

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	user, err := s.identity.SignUp(ctx, identity.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user store.User) (Session, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  util.NewID("jti"),
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Profile(ctx context.Context, session Session) (map[string]any, error) {
	user, err := s.identity.Lookup(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"userId":      user.ID,
		"displayName": user.DisplayName,
		"email":       user.Email,
	}, nil
}

// Rename changes the account display name and reissues the session token so
// the new name is carried in subsequent requests. Existing notes keep the
// creator name they were posted with.
func (s *Service) Rename(ctx context.Context, session Session, displayName string) (Session, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "display name is required", nil)
	}
	user, err := s.identity.Rename(ctx, session.UserID, name)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

// --- collaboration lifecycle ---

func (s *Service) CreateCollaboration(ctx context.Context, session Session, input CreateCollaborationInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Untitled session"
	}
	allowed, err := parseNoteTypes(input.AllowedNoteTypes)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		allowed = live.AllNoteTypes()
	}
	showNames := true
	if input.ShowAuthorNames != nil {
		showNames = *input.ShowAuthorNames
	}
	now := time.Now()
	record := live.Collaboration{
		ID:               util.NewID("col"),
		Title:            title,
		Prompt:           input.Prompt,
		PromptUpdatedAt:  now,
		HostID:           session.UserID,
		HostName:         session.UserName,
		StartedAt:        now,
		Active:           true,
		AllowedNoteTypes: allowed,
		ShowAuthorNames:  showNames,
	}
	if err := s.live.CreateCollaboration(ctx, record); err != nil {
		return nil, err
	}
	return map[string]any{"id": record.ID, "title": record.Title, "startedAt": record.StartedAt}, nil
}

func (s *Service) SetPaused(ctx context.Context, session Session, collaborationID string, paused bool) error {
	return s.hostUpdate(ctx, session, collaborationID, func(c *live.Collaboration) error {
		if !c.Active {
			return domainError(http.StatusConflict, "SESSION_ENDED", "collaboration has ended", nil)
		}
		c.Paused = paused
		return nil
	})
}

// Reopen reactivates an ended collaboration. Any report generated on a later
// End is committed as a new archive version.
func (s *Service) Reopen(ctx context.Context, session Session, collaborationID string) error {
	return s.hostUpdate(ctx, session, collaborationID, func(c *live.Collaboration) error {
		c.Active = true
		c.Paused = false
		return nil
	})
}

// End deactivates the collaboration, generates the report, commits the
// Markdown rendering to the archive, and uploads the artifacts to object
// storage. Archive and upload failures are returned to the caller.
func (s *Service) End(ctx context.Context, session Session, collaborationID string) (map[string]any, error) {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	if collab.HostID != session.UserID {
		return nil, errHostOnly()
	}
	if err := s.live.UpdateCollaboration(ctx, collaborationID, func(c *live.Collaboration) error {
		c.Active = false
		c.Paused = false
		return nil
	}); err != nil {
		return nil, err
	}
	collab.Active = false
	collab.Paused = false

	notes, err := s.live.ListNotes(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	generated := report.Generate(collab, notes)

	commit, err := s.archives.CommitReport(collaborationID, []byte(generated.Markdown), session.UserName,
		fmt.Sprintf("Report for %q ended %s", collab.Title, time.Now().Format(time.RFC3339)))
	if err != nil {
		return nil, fmt.Errorf("archive report: %w", err)
	}

	result := map[string]any{
		"id":     collaborationID,
		"active": false,
		"commit": commit.Hash,
	}

	artifacts := []struct {
		format      report.Format
		data        []byte
		contentType string
	}{
		{report.FormatMarkdown, []byte(generated.Markdown), "text/markdown"},
		{report.FormatHTML, []byte(generated.HTML), "text/html"},
	}
	for _, artifact := range artifacts {
		objectKey := fmt.Sprintf("%s/%s/report.%s", collaborationID, commit.Hash, extension(artifact.format))
		if s.uploader != nil {
			if _, err := s.uploader.Upload(ctx, objectKey, artifact.data, artifact.contentType); err != nil {
				return nil, fmt.Errorf("upload report artifact: %w", err)
			}
		}
		if s.accounts != nil {
			if err := s.accounts.InsertReportArtifact(ctx, store.ReportArtifact{
				ID:              util.NewID("art"),
				CollaborationID: collaborationID,
				Format:          string(artifact.format),
				ObjectKey:       objectKey,
				CommitHash:      commit.Hash,
				GeneratedAt:     time.Now(),
			}); err != nil {
				return nil, fmt.Errorf("record report artifact: %w", err)
			}
		}
	}
	return result, nil
}

// EditPrompt replaces the rich-text prompt and appends the superseded
// version to the prompt timeline.
func (s *Service) EditPrompt(ctx context.Context, session Session, collaborationID, prompt string) error {
	return s.hostUpdate(ctx, session, collaborationID, func(c *live.Collaboration) error {
		if !c.Active {
			return domainError(http.StatusConflict, "SESSION_ENDED", "collaboration has ended", nil)
		}
		c.PromptHistory = append(c.PromptHistory, live.PromptVersion{
			Content:  c.Prompt,
			EditedAt: c.PromptUpdatedAt,
		})
		c.Prompt = prompt
		c.PromptUpdatedAt = time.Now()
		return nil
	})
}

func (s *Service) SetAllowedTypes(ctx context.Context, session Session, collaborationID string, types []string) error {
	allowed, err := parseNoteTypes(types)
	if err != nil {
		return err
	}
	if len(allowed) == 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one note type must stay enabled", nil)
	}
	return s.hostUpdate(ctx, session, collaborationID, func(c *live.Collaboration) error {
		c.AllowedNoteTypes = allowed
		return nil
	})
}

func (s *Service) SetShowAuthorNames(ctx context.Context, session Session, collaborationID string, show bool) error {
	return s.hostUpdate(ctx, session, collaborationID, func(c *live.Collaboration) error {
		c.ShowAuthorNames = show
		return nil
	})
}

func (s *Service) hostUpdate(ctx context.Context, session Session, collaborationID string, mutate func(*live.Collaboration) error) error {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return err
	}
	if collab.HostID != session.UserID {
		return errHostOnly()
	}
	return s.live.UpdateCollaboration(ctx, collaborationID, mutate)
}

// --- participant flow ---

// RequestJoin places the caller in the waiting room. Re-requesting after a
// revoke goes back to pending; an approved participant stays approved.
func (s *Service) RequestJoin(ctx context.Context, session Session, collaborationID, email string) (map[string]any, error) {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	if collab.HostID == session.UserID {
		return map[string]any{"status": "host"}, nil
	}
	status := live.ParticipantPending
	if existing, err := s.live.GetParticipant(ctx, collaborationID, session.UserID); err == nil && existing.Status == live.ParticipantApproved {
		status = live.ParticipantApproved
	}
	participant := live.Participant{
		UserID:      session.UserID,
		DisplayName: session.UserName,
		Email:       strings.TrimSpace(email),
		Status:      status,
		RequestedAt: time.Now(),
	}
	if err := s.live.UpsertParticipant(ctx, collaborationID, participant); err != nil {
		return nil, err
	}
	return map[string]any{"status": string(status)}, nil
}

func (s *Service) SetParticipantStatus(ctx context.Context, session Session, collaborationID, userID string, status live.ParticipantStatus) error {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return err
	}
	if collab.HostID != session.UserID {
		return errHostOnly()
	}
	participant, err := s.live.GetParticipant(ctx, collaborationID, userID)
	if err != nil {
		return err
	}
	participant.Status = status
	return s.live.UpsertParticipant(ctx, collaborationID, participant)
}

func (s *Service) Roster(ctx context.Context, session Session, collaborationID string) ([]live.Participant, error) {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	if collab.HostID != session.UserID {
		if err := s.requireApproved(ctx, collab, session.UserID); err != nil {
			return nil, err
		}
	}
	return s.live.ListParticipants(ctx, collaborationID)
}

// AuthorizeViewer reports whether the user may read the collaboration:
// the host, or an approved participant.
func (s *Service) AuthorizeViewer(ctx context.Context, collaborationID, userID string) error {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return err
	}
	return s.requireApproved(ctx, collab, userID)
}

func (s *Service) requireApproved(ctx context.Context, collab live.Collaboration, userID string) error {
	if collab.HostID == userID {
		return nil
	}
	participant, err := s.live.GetParticipant(ctx, collab.ID, userID)
	if err != nil || participant.Status != live.ParticipantApproved {
		return domainError(http.StatusForbidden, "NOT_APPROVED", "you are not an approved participant", nil)
	}
	return nil
}

func (s *Service) writableCollaboration(ctx context.Context, collaborationID, userID string) (live.Collaboration, error) {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return live.Collaboration{}, err
	}
	if err := s.requireApproved(ctx, collab, userID); err != nil {
		return live.Collaboration{}, err
	}
	if !collab.Active {
		return live.Collaboration{}, domainError(http.StatusConflict, "SESSION_ENDED", "collaboration has ended", nil)
	}
	if collab.Paused {
		return live.Collaboration{}, domainError(http.StatusConflict, "SESSION_PAUSED", "collaboration is paused", nil)
	}
	return collab, nil
}

// --- note mutations ---

func (s *Service) AddNote(ctx context.Context, session Session, collaborationID string, input AddNoteInput) (map[string]any, error) {
	collab, err := s.writableCollaboration(ctx, collaborationID, session.UserID)
	if err != nil {
		return nil, err
	}
	if !live.ValidNoteType(input.Type) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown note type", nil)
	}
	noteType := live.NoteType(input.Type)
	if !collab.AllowsType(noteType) {
		return nil, domainError(http.StatusUnprocessableEntity, "TYPE_DISABLED", "this note type is not enabled for the session", nil)
	}
	if noteType == live.TypeHostNote && collab.HostID != session.UserID {
		return nil, errHostOnly()
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}
	note := live.Note{
		ID:              util.NewID("note"),
		CollaborationID: collaborationID,
		Type:            noteType,
		Content:         input.Content,
		CreatedBy:       session.UserID,
		CreatorName:     session.UserName,
		CreatedAt:       time.Now(),
	}
	if noteType == live.TypeActionItem {
		note.Assignee = strings.TrimSpace(input.Assignee)
		note.DueDate = strings.TrimSpace(input.DueDate)
	}
	if noteType == live.TypePoll {
		options := trimmedNonEmpty(input.PollOptions)
		if len(options) < 2 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "a poll needs at least two options", nil)
		}
		note.PollOptions = options
		note.PollMultiple = input.PollMultiple
	}
	if err := s.live.AppendNote(ctx, note); err != nil {
		return nil, err
	}
	s.indexNote(note)
	return map[string]any{"noteId": note.ID}, nil
}

// EditNote replaces the note content and pushes the superseded version onto
// the edit history. Only the author can edit.
func (s *Service) EditNote(ctx context.Context, session Session, collaborationID, noteID, content string) error {
	if _, err := s.writableCollaboration(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}
	var updated live.Note
	err := s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		if n.CreatedBy != session.UserID {
			return domainError(http.StatusForbidden, "FORBIDDEN", "only the author can edit a note", nil)
		}
		n.EditHistory = append(n.EditHistory, live.Edit{Content: n.Content, EditedAt: time.Now()})
		n.Content = content
		updated = *n
		return nil
	})
	if err != nil {
		return err
	}
	s.indexNote(updated)
	return nil
}

// ReactNote toggles the caller's reaction: the same kind again removes it,
// a different kind replaces it.
func (s *Service) ReactNote(ctx context.Context, session Session, collaborationID, noteID, kind string) error {
	if _, err := s.writableCollaboration(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	if !live.ValidReactionKind(kind) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown reaction kind", nil)
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		if n.Reactions == nil {
			n.Reactions = map[string]live.ReactionKind{}
		}
		if n.Reactions[session.UserID] == live.ReactionKind(kind) {
			delete(n.Reactions, session.UserID)
			return nil
		}
		n.Reactions[session.UserID] = live.ReactionKind(kind)
		return nil
	})
}

func (s *Service) AddResponse(ctx context.Context, session Session, collaborationID, noteID, content string) error {
	if _, err := s.writableCollaboration(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		n.Responses = append(n.Responses, live.Response{
			Content:    content,
			AuthorID:   session.UserID,
			AuthorName: session.UserName,
			CreatedAt:  time.Now(),
		})
		return nil
	})
}

func (s *Service) ReactResponse(ctx context.Context, session Session, collaborationID, noteID string, responseIndex int, kind string) error {
	if _, err := s.writableCollaboration(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	if !live.ValidReactionKind(kind) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown reaction kind", nil)
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		if responseIndex < 0 || responseIndex >= len(n.Responses) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "response not found", nil)
		}
		response := &n.Responses[responseIndex]
		if response.Reactions == nil {
			response.Reactions = map[string]live.ReactionKind{}
		}
		if response.Reactions[session.UserID] == live.ReactionKind(kind) {
			delete(response.Reactions, session.UserID)
			return nil
		}
		response.Reactions[session.UserID] = live.ReactionKind(kind)
		return nil
	})
}

// VotePoll records the caller's vote. An empty selection retracts it.
func (s *Service) VotePoll(ctx context.Context, session Session, collaborationID, noteID string, selection []int) error {
	if _, err := s.writableCollaboration(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		if n.Type != live.TypePoll {
			return domainError(http.StatusUnprocessableEntity, "NOT_A_POLL", "note is not a poll", nil)
		}
		if n.PollClosed {
			return domainError(http.StatusConflict, "POLL_CLOSED", "poll is closed", nil)
		}
		if len(selection) == 0 {
			delete(n.PollVotes, session.UserID)
			return nil
		}
		if !n.PollMultiple && len(selection) > 1 {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "poll allows a single choice", nil)
		}
		for _, index := range selection {
			if index < 0 || index >= len(n.PollOptions) {
				return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "option index out of range", nil)
			}
		}
		if n.PollVotes == nil {
			n.PollVotes = map[string]live.VoteValue{}
		}
		n.PollVotes[session.UserID] = live.VoteValue(selection)
		return nil
	})
}

// ClosePoll stops further voting. The host or the poll author may close.
func (s *Service) ClosePoll(ctx context.Context, session Session, collaborationID, noteID string) error {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return err
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		if n.Type != live.TypePoll {
			return domainError(http.StatusUnprocessableEntity, "NOT_A_POLL", "note is not a poll", nil)
		}
		if collab.HostID != session.UserID && n.CreatedBy != session.UserID {
			return domainError(http.StatusForbidden, "FORBIDDEN", "only the host or the poll author can close a poll", nil)
		}
		n.PollClosed = true
		return nil
	})
}

// SetArchived moves a note in or out of the archived tab. Host only.
func (s *Service) SetArchived(ctx context.Context, session Session, collaborationID, noteID string, archived bool) error {
	if err := s.requireHost(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		n.Archived = archived
		return nil
	})
}

// GroupNote nests child under parent. Grouping is one level deep: a note
// that is itself grouped cannot become a parent.
func (s *Service) GroupNote(ctx context.Context, session Session, collaborationID, childID, parentID string) error {
	if err := s.requireHost(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	if childID == parentID {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "a note cannot be grouped under itself", nil)
	}
	parent, err := s.live.GetNote(ctx, collaborationID, parentID)
	if err != nil {
		return err
	}
	if parent.GroupedUnder != "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "parent note is already grouped", nil)
	}
	return s.live.UpdateNote(ctx, collaborationID, childID, func(n *live.Note) error {
		n.GroupedUnder = parentID
		return nil
	})
}

func (s *Service) UngroupNote(ctx context.Context, session Session, collaborationID, noteID string) error {
	if err := s.requireHost(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		n.GroupedUnder = ""
		return nil
	})
}

func (s *Service) SetDuplicate(ctx context.Context, session Session, collaborationID, noteID string, duplicate bool) error {
	if err := s.requireHost(ctx, collaborationID, session.UserID); err != nil {
		return err
	}
	return s.live.UpdateNote(ctx, collaborationID, noteID, func(n *live.Note) error {
		n.MarkedDuplicate = duplicate
		return nil
	})
}

func (s *Service) requireHost(ctx context.Context, collaborationID, userID string) error {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return err
	}
	if collab.HostID != userID {
		return errHostOnly()
	}
	return nil
}

// --- view ---

// View derives the display model for one participant from the current
// snapshot. The UI state echoed back carries the updated auto-selection.
func (s *Service) View(ctx context.Context, session Session, collaborationID string, params ViewParams) (map[string]any, error) {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireApproved(ctx, collab, session.UserID); err != nil {
		return nil, err
	}
	notes, err := s.live.ListNotes(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	roster, err := s.live.ListParticipants(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	model, state := view.Derive(notes, &collab, roster, session.UserID, uiStateFromParams(params))
	return viewPayload(collab, model, state), nil
}

func uiStateFromParams(params ViewParams) view.UIState {
	state := view.NewUIState()
	if view.ValidFilter(params.Filter) {
		state.Filter = view.Filter(params.Filter)
	}
	if view.ValidSortOrder(params.Sort) {
		state.Sort = view.SortOrder(params.Sort)
	}
	if len(params.SelectedTypes) > 0 {
		state.SelectedTypes = map[live.NoteType]bool{}
		for _, value := range params.SelectedTypes {
			if live.ValidNoteType(value) {
				state.SelectedTypes[live.NoteType(value)] = true
			}
		}
	}
	for _, value := range params.SeenTypes {
		if live.ValidNoteType(value) {
			state.SeenTypes[live.NoteType(value)] = true
		}
	}
	for _, id := range params.ExpandedGroups {
		if id != "" {
			state.ExpandedGroups[id] = true
		}
	}
	state.RespondingTo = params.RespondingTo
	return state
}

func viewPayload(collab live.Collaboration, model view.Model, state view.UIState) map[string]any {
	seen := make([]string, 0, len(state.SeenTypes))
	for _, t := range live.AllNoteTypes() {
		if state.SeenTypes[t] {
			seen = append(seen, string(t))
		}
	}
	return map[string]any{
		"collaboration": map[string]any{
			"id":               collab.ID,
			"title":            collab.Title,
			"prompt":           collab.Prompt,
			"hostName":         collab.HostName,
			"startedAt":        collab.StartedAt,
			"active":           collab.Active,
			"paused":           collab.Paused,
			"allowedNoteTypes": collab.AllowedNoteTypes,
			"showAuthorNames":  collab.ShowAuthorNames,
		},
		"rows":          model.Rows,
		"tabs":          model.Tabs,
		"selectedTypes": model.SelectedTypes,
		"seenTypes":     seen,
		"pollTallies":   model.PollTallies,
		"activity":      model.Activity,
	}
}

// --- reports and search ---

// ExportReport renders the current snapshot in the requested format. It does
// not require the collaboration to have ended.
func (s *Service) ExportReport(ctx context.Context, session Session, collaborationID, format string) (*report.Artifact, error) {
	if !report.ValidFormat(format) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown export format", nil)
	}
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireApproved(ctx, collab, session.UserID); err != nil {
		return nil, err
	}
	notes, err := s.live.ListNotes(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	return report.Export(collab, notes, report.Format(format))
}

// ArchivedReport returns the latest Markdown rendering committed to the
// archive, as produced by the most recent End.
func (s *Service) ArchivedReport(collaborationID string) ([]byte, archive.CommitInfo, error) {
	return s.archives.LatestReport(collaborationID)
}

// ReportHistory lists the archived report versions, newest first.
func (s *Service) ReportHistory(ctx context.Context, session Session, collaborationID string, limit int) (map[string]any, error) {
	if err := s.requireHost(ctx, collaborationID, session.UserID); err != nil {
		return nil, err
	}
	commits, err := s.archives.History(collaborationID, limit)
	if err != nil {
		return nil, err
	}
	versions := make([]map[string]any, 0, len(commits))
	for _, commit := range commits {
		versions = append(versions, map[string]any{
			"hash":      commit.Hash,
			"message":   commit.Message,
			"author":    commit.Author,
			"createdAt": commit.CreatedAt,
		})
	}
	artifacts := []store.ReportArtifact{}
	if s.accounts != nil {
		artifacts, err = s.accounts.ListReportArtifacts(ctx, collaborationID)
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{"versions": versions, "artifacts": artifacts}, nil
}

func (s *Service) SearchNotes(ctx context.Context, session Session, collaborationID string, query search.Query) (search.Response, error) {
	collab, err := s.live.GetCollaboration(ctx, collaborationID)
	if err != nil {
		return search.Response{}, err
	}
	if err := s.requireApproved(ctx, collab, session.UserID); err != nil {
		return search.Response{}, err
	}
	query.CollaborationID = collaborationID
	return s.search.Search(query), nil
}

func (s *Service) indexNote(note live.Note) {
	if s.search == nil {
		return
	}
	s.search.IndexNote(search.NoteRecord{
		ID:              note.ID,
		CollaborationID: note.CollaborationID,
		Type:            string(note.Type),
		Content:         report.PlainText(note.Content),
		CreatorName:     note.CreatorName,
	})
}

// --- helpers ---

func errHostOnly() error {
	return domainError(http.StatusForbidden, "FORBIDDEN", "only the host can do this", nil)
}

func parseNoteTypes(values []string) ([]live.NoteType, error) {
	parsed := make([]live.NoteType, 0, len(values))
	for _, value := range values {
		if !live.ValidNoteType(value) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("unknown note type %q", value), nil)
		}
		parsed = append(parsed, live.NoteType(value))
	}
	return parsed, nil
}

func trimmedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func extension(format report.Format) string {
	switch format {
	case report.FormatMarkdown:
		return "md"
	case report.FormatPDF:
		return "pdf"
	default:
		return "html"
	}
}
