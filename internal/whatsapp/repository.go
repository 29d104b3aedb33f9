package whatsapp

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the conversation does not exist.
	ErrNotFound = errors.New("whatsapp: conversation not found")
	// ErrVersionConflict indicates the conversation changed since it was loaded.
	ErrVersionConflict = errors.New("whatsapp: conversation version conflict")
)

// HistoryLimit is the number of recent messages handed to the AI layer.
const HistoryLimit = 10

// Repository persists conversations and their messages.
//
// Save writes the flow state, location memory and pause flags in one statement and
// fails with ErrVersionConflict when the stored version differs from c.Version.
type Repository interface {
	FindByPhone(ctx context.Context, phone string) (*Conversation, error)
	FindByID(ctx context.Context, id string) (*Conversation, error)
	Create(ctx context.Context, phone, contactName string) (*Conversation, error)
	GetOrCreate(ctx context.Context, phone, contactName string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	AppendMessage(ctx context.Context, msg NewMessage) (*Message, error)
	Pause(ctx context.Context, id string, req PauseRequest) error
	Resume(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

// getOrCreate implements GetOrCreate on top of the narrower operations.
func getOrCreate(ctx context.Context, r interface {
	FindByPhone(ctx context.Context, phone string) (*Conversation, error)
	Create(ctx context.Context, phone, contactName string) (*Conversation, error)
	updateContactName(ctx context.Context, c *Conversation, name string) error
}, phone, contactName string) (*Conversation, error) {
	conv, err := r.FindByPhone(ctx, phone)
	if err == nil {
		if contactName != "" && conv.ContactName != contactName {
			if err := r.updateContactName(ctx, conv, contactName); err != nil {
				return nil, err
			}
		}
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return r.Create(ctx, phone, contactName)
}
