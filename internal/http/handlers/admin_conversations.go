package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/internal/http/middleware"
	"github.com/wolfman30/neumaticos-whatsapp/internal/livefeed"
	"github.com/wolfman30/neumaticos-whatsapp/internal/reporting"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 500
	manualReplyReason  = "respuesta manual"
)

type conversationReports interface {
	ListConversations(ctx context.Context, f reporting.ListFilter) ([]reporting.ConversationSummary, error)
	ConversationStats(ctx context.Context, days int) (reporting.Stats, error)
}

type transcriptArchiver interface {
	Archive(ctx context.Context, conv *whatsapp.Conversation) (string, error)
}

// AdminConversationsConfig wires AdminConversationsHandler. Reports, Sender,
// Feed, Archiver and Outbound are optional.
type AdminConversationsConfig struct {
	Repo     whatsapp.Repository
	Reports  conversationReports
	Sender   conversation.ReplySender
	Feed     conversation.Broadcaster
	Archiver transcriptArchiver
	Outbound conversation.OutboundObserver
	Logger   *logging.Logger
}

// AdminConversationsHandler serves the operator API over WhatsApp conversations.
type AdminConversationsHandler struct {
	repo     whatsapp.Repository
	reports  conversationReports
	sender   conversation.ReplySender
	feed     conversation.Broadcaster
	archiver transcriptArchiver
	outbound conversation.OutboundObserver
	logger   *logging.Logger
	now      func() time.Time
}

// NewAdminConversationsHandler creates the handler.
func NewAdminConversationsHandler(cfg AdminConversationsConfig) *AdminConversationsHandler {
	if cfg.Repo == nil {
		panic("handlers: conversation repository cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AdminConversationsHandler{
		repo:     cfg.Repo,
		reports:  cfg.Reports,
		sender:   cfg.Sender,
		feed:     cfg.Feed,
		archiver: cfg.Archiver,
		outbound: cfg.Outbound,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// ConversationResponse is the admin view of one conversation.
type ConversationResponse struct {
	ID                string     `json:"id"`
	Phone             string     `json:"phone"`
	ContactName       string     `json:"contact_name,omitempty"`
	Status            string     `json:"status"`
	Paused            bool       `json:"is_paused"`
	PausedAt          *time.Time `json:"paused_at,omitempty"`
	PausedBy          string     `json:"paused_by,omitempty"`
	PauseReason       string     `json:"pause_reason,omitempty"`
	MessageCount      int        `json:"message_count"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
	State             string     `json:"conversation_state"`
	UserCity          string     `json:"user_city,omitempty"`
	PreferredBranchID string     `json:"preferred_branch_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toConversationResponse(c *whatsapp.Conversation) ConversationResponse {
	state := whatsapp.StateIdle
	if c.State != nil {
		state = c.State.Name()
	}
	return ConversationResponse{
		ID:                c.ID,
		Phone:             c.Phone,
		ContactName:       c.ContactName,
		Status:            string(c.Status),
		Paused:            c.Paused,
		PausedAt:          c.PausedAt,
		PausedBy:          c.PausedBy,
		PauseReason:       c.PauseReason,
		MessageCount:      c.MessageCount,
		LastMessageAt:     c.LastMessageAt,
		State:             state,
		UserCity:          c.UserCity,
		PreferredBranchID: c.PreferredBranchID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// ListConversations handles GET /admin/conversations?status=&paused=&limit=&offset=.
func (h *AdminConversationsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		jsonError(w, "reporting unavailable", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	filter := reporting.ListFilter{}
	for _, s := range strings.Split(q.Get("status"), ",") {
		s = strings.TrimSpace(s)
		if s == "" || s == "all" {
			continue
		}
		if !whatsapp.Status(s).Valid() {
			jsonError(w, "invalid status", http.StatusBadRequest)
			return
		}
		filter.Statuses = append(filter.Statuses, s)
	}
	if raw := q.Get("paused"); raw != "" {
		paused, err := strconv.ParseBool(raw)
		if err != nil {
			jsonError(w, "invalid paused filter", http.StatusBadRequest)
			return
		}
		filter.Paused = &paused
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, err := h.reports.ListConversations(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []reporting.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items, "total": len(items)})
}

// Stats handles GET /admin/conversations/stats?days=.
func (h *AdminConversationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		jsonError(w, "reporting unavailable", http.StatusServiceUnavailable)
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	stats, err := h.reports.ConversationStats(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to compute conversation stats", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetConversation handles GET /admin/conversations/{id}.
func (h *AdminConversationsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

// ListMessages handles GET /admin/conversations/{id}/messages?limit=, oldest first.
func (h *AdminConversationsHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}
	msgs, err := h.repo.RecentMessages(r.Context(), conv.ID, limit)
	if err != nil {
		h.logger.Error("failed to load messages", "error", err, "conversation_id", conv.ID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []whatsapp.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": conv.ID, "messages": msgs})
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

// Pause handles POST /admin/conversations/{id}/pause. The bot stops answering
// until Resume.
func (h *AdminConversationsHandler) Pause(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}
	var req pauseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	operator := middleware.AdminSubject(r.Context())
	if err := h.repo.Pause(r.Context(), conv.ID, whatsapp.PauseRequest{PausedBy: operator, Reason: strings.TrimSpace(req.Reason)}); err != nil {
		h.logger.Error("failed to pause conversation", "error", err, "conversation_id", conv.ID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("conversation paused by operator", "conversation_id", conv.ID, "operator", operator)
	h.broadcast(livefeed.Event{Type: livefeed.EventPaused, ConversationID: conv.ID, Phone: conv.Phone, Reason: req.Reason})
	h.respondFresh(w, r, conv.ID)
}

// Resume handles POST /admin/conversations/{id}/resume.
func (h *AdminConversationsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}
	if err := h.repo.Resume(r.Context(), conv.ID); err != nil {
		h.logger.Error("failed to resume conversation", "error", err, "conversation_id", conv.ID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("conversation resumed", "conversation_id", conv.ID, "operator", middleware.AdminSubject(r.Context()))
	h.broadcast(livefeed.Event{Type: livefeed.EventResumed, ConversationID: conv.ID, Phone: conv.Phone})
	h.respondFresh(w, r, conv.ID)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /admin/conversations/{id}/status. Archiving uploads
// the transcript first; a failed upload leaves the status unchanged.
func (h *AdminConversationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	status := whatsapp.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		jsonError(w, "invalid status", http.StatusBadRequest)
		return
	}

	if status == whatsapp.StatusArchived && conv.Status != whatsapp.StatusArchived && h.archiver != nil {
		key, err := h.archiver.Archive(r.Context(), conv)
		if err != nil {
			h.logger.Error("failed to archive transcript", "error", err, "conversation_id", conv.ID)
			jsonError(w, "archive failed", http.StatusBadGateway)
			return
		}
		if key != "" {
			w.Header().Set("X-Archive-Key", key)
		}
	}

	if err := h.repo.UpdateStatus(r.Context(), conv.ID, status); err != nil {
		h.logger.Error("failed to update conversation status", "error", err, "conversation_id", conv.ID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.broadcast(livefeed.Event{Type: livefeed.EventStatus, ConversationID: conv.ID, Phone: conv.Phone, Reason: string(status)})
	h.respondFresh(w, r, conv.ID)
}

type replyRequest struct {
	Message string `json:"message"`
}

type replyResponse struct {
	Message    whatsapp.Message `json:"message"`
	MessageSID string           `json:"message_sid,omitempty"`
	Paused     bool             `json:"is_paused"`
}

// Reply handles POST /admin/conversations/{id}/reply: an operator writes to the
// customer directly. The bot is paused first so it does not answer over them.
func (h *AdminConversationsHandler) Reply(w http.ResponseWriter, r *http.Request) {
	if h.sender == nil {
		jsonError(w, "whatsapp sender unavailable", http.StatusServiceUnavailable)
		return
	}
	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	body := strings.TrimSpace(req.Message)
	if body == "" {
		jsonError(w, "message required", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	operator := middleware.AdminSubject(ctx)

	if !conv.Paused {
		if err := h.repo.Pause(ctx, conv.ID, whatsapp.PauseRequest{PausedBy: operator, Reason: manualReplyReason}); err != nil {
			h.logger.Error("failed to pause before manual reply", "error", err, "conversation_id", conv.ID)
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.broadcast(livefeed.Event{Type: livefeed.EventPaused, ConversationID: conv.ID, Phone: conv.Phone, Reason: manualReplyReason})
	}

	sid, err := h.sender.SendWhatsApp(ctx, conv.Phone, body)
	h.observeOutbound(err)
	if err != nil {
		h.logger.Error("manual reply failed", "error", err, "conversation_id", conv.ID, "phone", logging.MaskPhone(conv.Phone))
		jsonError(w, "failed to send message", http.StatusBadGateway)
		return
	}

	msg, err := h.repo.AppendMessage(ctx, whatsapp.NewMessage{
		ConversationID: conv.ID,
		Role:           whatsapp.RoleAssistant,
		Content:        body,
		SentByHuman:    true,
		SentByUserID:   operator,
	})
	if err != nil {
		// The customer already has the message; only the record is missing.
		h.logger.Error("failed to record manual reply", "error", err, "conversation_id", conv.ID, "message_sid", sid)
		jsonError(w, "message sent but not recorded", http.StatusInternalServerError)
		return
	}
	h.broadcast(livefeed.Event{
		Type:           livefeed.EventMessage,
		ConversationID: conv.ID,
		Phone:          conv.Phone,
		Role:           string(whatsapp.RoleAssistant),
		Content:        body,
		SentByHuman:    true,
	})
	h.logger.Info("manual reply sent", "conversation_id", conv.ID, "operator", operator, "message_sid", sid)
	writeJSON(w, http.StatusCreated, replyResponse{Message: *msg, MessageSID: sid, Paused: true})
}

func (h *AdminConversationsHandler) loadConversation(w http.ResponseWriter, r *http.Request) (*whatsapp.Conversation, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		jsonError(w, "missing conversation id", http.StatusBadRequest)
		return nil, false
	}
	conv, err := h.repo.FindByID(r.Context(), id)
	if errors.Is(err, whatsapp.ErrNotFound) {
		jsonError(w, "conversation not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load conversation", "error", err, "conversation_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return conv, true
}

func (h *AdminConversationsHandler) respondFresh(w http.ResponseWriter, r *http.Request, id string) {
	conv, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to reload conversation", "error", err, "conversation_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *AdminConversationsHandler) broadcast(evt livefeed.Event) {
	if h.feed == nil {
		return
	}
	evt.At = h.now().UTC()
	h.feed.Broadcast(evt)
}

func (h *AdminConversationsHandler) observeOutbound(err error) {
	if h.outbound == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	h.outbound.ObserveOutbound(status, true)
}
