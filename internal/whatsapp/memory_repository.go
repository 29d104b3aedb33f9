package whatsapp

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used for local runs and tests.
type MemoryRepository struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	byPhone       map[string]string
	messages      map[string][]Message
	now           func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[string]*Conversation),
		byPhone:       make(map[string]string),
		messages:      make(map[string][]Message),
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *MemoryRepository) FindByPhone(_ context.Context, phone string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPhone[NormalizePhone(phone)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(r.conversations[id]), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(c), nil
}

func (r *MemoryRepository) Create(_ context.Context, phone, contactName string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := NormalizePhone(phone)
	if key == "" {
		return nil, errors.New("whatsapp: phone required")
	}
	if id, ok := r.byPhone[key]; ok {
		return copyConversation(r.conversations[id]), nil
	}
	now := r.now()
	c := &Conversation{
		ID:          uuid.NewString(),
		Phone:       key,
		ContactName: contactName,
		Status:      StatusActive,
		State:       Idle{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.conversations[c.ID] = c
	r.byPhone[key] = c.ID
	return copyConversation(c), nil
}

func (r *MemoryRepository) GetOrCreate(ctx context.Context, phone, contactName string) (*Conversation, error) {
	return getOrCreate(ctx, r, phone, contactName)
}

func (r *MemoryRepository) updateContactName(_ context.Context, c *Conversation, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conversations[c.ID]
	if !ok {
		return ErrNotFound
	}
	stored.ContactName = name
	c.ContactName = name
	return nil
}

func (r *MemoryRepository) Save(_ context.Context, c *Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conversations[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrVersionConflict
	}
	name, search, draft := EncodeState(c.State)
	state, err := DecodeState(name, search, draft)
	if err != nil {
		return err
	}
	stored.State = state
	stored.UserCity = c.UserCity
	stored.PreferredBranchID = c.PreferredBranchID
	stored.Paused = c.Paused
	stored.PausedAt = c.PausedAt
	stored.PausedBy = c.PausedBy
	stored.PauseReason = c.PauseReason
	stored.Version++
	stored.UpdatedAt = r.now()
	c.Version = stored.Version
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryRepository) AppendMessage(_ context.Context, in NewMessage) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[in.ConversationID]
	if !ok {
		return nil, ErrNotFound
	}
	now := r.now()
	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		Role:           in.Role,
		Content:        in.Content,
		SentByHuman:    in.SentByHuman,
		SentByUserID:   in.SentByUserID,
		Intent:         in.Intent,
		ResponseTimeMS: in.responseTimeMS(),
		CreatedAt:      now,
	}
	r.messages[in.ConversationID] = append(r.messages[in.ConversationID], msg)
	c.MessageCount++
	c.LastMessageAt = &now
	return &msg, nil
}

func (r *MemoryRepository) Pause(_ context.Context, id string, req PauseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.Pause(req, r.now())
	c.Version++
	return nil
}

func (r *MemoryRepository) Resume(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.Resume()
	c.Version++
	return nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status Status) error {
	if !status.Valid() {
		return errors.New("whatsapp: invalid status")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) RecentMessages(_ context.Context, conversationID string, limit int) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := append([]Message(nil), r.messages[conversationID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func copyConversation(c *Conversation) *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	if st, ok := c.State.(AppointmentFlow); ok {
		st.Draft = st.Draft.Clone()
		out.State = st
	}
	return &out
}
