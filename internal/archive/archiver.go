package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// maxTranscriptMessages bounds a single transcript.
const maxTranscriptMessages = 2000

type messageSource interface {
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]whatsapp.Message, error)
}

// Archiver builds transcripts from the conversation store and uploads them.
type Archiver struct {
	messages messageSource
	store    *Store
	logger   *logging.Logger
	now      func() time.Time
}

// NewArchiver returns nil when the store is not enabled; a nil Archiver is a no-op.
func NewArchiver(messages messageSource, store *Store, logger *logging.Logger) *Archiver {
	if store == nil || !store.Enabled() {
		return nil
	}
	if messages == nil {
		panic("archive: message source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{messages: messages, store: store, logger: logger, now: time.Now}
}

// Archive uploads the transcript of conv and returns the S3 key.
func (a *Archiver) Archive(ctx context.Context, conv *whatsapp.Conversation) (string, error) {
	if a == nil || conv == nil {
		return "", nil
	}
	msgs, err := a.messages.RecentMessages(ctx, conv.ID, maxTranscriptMessages)
	if err != nil {
		return "", fmt.Errorf("archive: load messages: %w", err)
	}

	t := BuildTranscript(conv, msgs, a.now().UTC())
	key, err := a.store.PutTranscript(ctx, t)
	if err != nil {
		return "", err
	}
	a.logger.Info("conversation archived", "conversation_id", conv.ID, "phone", logging.MaskPhone(conv.Phone), "s3_key", key)
	return key, nil
}

// BuildTranscript converts stored messages into a scrubbed Transcript.
func BuildTranscript(conv *whatsapp.Conversation, msgs []whatsapp.Message, archivedAt time.Time) *Transcript {
	t := &Transcript{
		Version:        transcriptVersion,
		ConversationID: conv.ID,
		PhoneHash:      HashPhone(whatsapp.NormalizePhone(conv.Phone)),
		ContactName:    conv.ContactName,
		ArchivedAt:     archivedAt,
		StartedAt:      conv.CreatedAt,
		MessageCount:   len(msgs),
		HandedOff:      conv.PausedBy == "system",
		Messages:       make([]Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		t.Messages = append(t.Messages, Message{
			Role:        string(m.Role),
			Content:     m.Content,
			SentByHuman: m.SentByHuman,
			Intent:      m.Intent,
			Timestamp:   m.CreatedAt,
		})
		if m.SentByHuman {
			t.HumanReplies++
		}
		if m.Intent != "" {
			if t.Intents == nil {
				t.Intents = make(map[string]int)
			}
			t.Intents[m.Intent]++
		}
	}
	if len(msgs) >= 2 {
		t.StartedAt = msgs[0].CreatedAt
		t.DurationSeconds = int(msgs[len(msgs)-1].CreatedAt.Sub(msgs[0].CreatedAt).Seconds())
	}
	ScrubMessages(t.Messages)
	return t
}
