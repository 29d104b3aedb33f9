package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by PostgresRepository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores conversations in whatsapp_conversations / whatsapp_messages.
type PostgresRepository struct {
	db Querier
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository initializes a repo backed by pgxpool (or any Querier).
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("whatsapp: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const conversationColumns = `
	id::text, phone, COALESCE(contact_name, ''), status,
	is_paused, paused_at, COALESCE(paused_by, ''), COALESCE(pause_reason, ''),
	message_count, last_message_at,
	COALESCE(user_city, ''), COALESCE(preferred_branch_id::text, ''),
	conversation_state, pending_tire_search, pending_appointment,
	version, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var (
		c          Conversation
		status     string
		stateName  string
		searchJSON []byte
		draftJSON  []byte
	)
	if err := row.Scan(
		&c.ID, &c.Phone, &c.ContactName, &status,
		&c.Paused, &c.PausedAt, &c.PausedBy, &c.PauseReason,
		&c.MessageCount, &c.LastMessageAt,
		&c.UserCity, &c.PreferredBranchID,
		&stateName, &searchJSON, &draftJSON,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = Status(status)

	var search *PendingTireSearch
	if len(searchJSON) > 0 && string(searchJSON) != "null" {
		search = &PendingTireSearch{}
		if err := json.Unmarshal(searchJSON, search); err != nil {
			return nil, fmt.Errorf("whatsapp: decode pending tire search: %w", err)
		}
	}
	var draft *PendingAppointment
	if len(draftJSON) > 0 && string(draftJSON) != "null" {
		draft = &PendingAppointment{}
		if err := json.Unmarshal(draftJSON, draft); err != nil {
			return nil, fmt.Errorf("whatsapp: decode pending appointment: %w", err)
		}
	}
	state, err := DecodeState(stateName, search, draft)
	if err != nil {
		return nil, err
	}
	c.State = state
	return &c, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM whatsapp_conversations WHERE ` + where
	c, err := scanConversation(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("whatsapp: select conversation: %w", err)
	}
	return c, nil
}

// FindByPhone loads the conversation for a phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*Conversation, error) {
	return r.findOne(ctx, "phone = $1", NormalizePhone(phone))
}

// FindByID loads a conversation by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Conversation, error) {
	return r.findOne(ctx, "id = $1::uuid", id)
}

// Create inserts an active, idle conversation. A concurrent insert for the same phone returns the existing row.
func (r *PostgresRepository) Create(ctx context.Context, phone, contactName string) (*Conversation, error) {
	key := NormalizePhone(phone)
	if key == "" {
		return nil, errors.New("whatsapp: phone required")
	}
	query := `
		INSERT INTO whatsapp_conversations (id, phone, contact_name, status, conversation_state, message_count, version)
		VALUES ($1, $2, NULLIF($3, ''), 'active', 'idle', 0, 1)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING ` + conversationColumns
	c, err := scanConversation(r.db.QueryRow(ctx, query, uuid.NewString(), key, contactName))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: insert conversation: %w", err)
	}
	return c, nil
}

// GetOrCreate loads the conversation for phone, creating it on first contact.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, phone, contactName string) (*Conversation, error) {
	return getOrCreate(ctx, r, phone, contactName)
}

func (r *PostgresRepository) updateContactName(ctx context.Context, c *Conversation, name string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE whatsapp_conversations SET contact_name = $2, updated_at = now() WHERE id = $1::uuid`,
		c.ID, name)
	if err != nil {
		return fmt.Errorf("whatsapp: update contact name: %w", err)
	}
	c.ContactName = name
	return nil
}

// Save persists the turn's mutations guarded by the version column.
func (r *PostgresRepository) Save(ctx context.Context, c *Conversation) error {
	name, search, draft := EncodeState(c.State)
	searchArg, err := jsonArg(search)
	if err != nil {
		return err
	}
	draftArg, err := jsonArg(draft)
	if err != nil {
		return err
	}

	query := `
		UPDATE whatsapp_conversations SET
			conversation_state = $2,
			pending_tire_search = $3,
			pending_appointment = $4,
			user_city = NULLIF($5, ''),
			preferred_branch_id = NULLIF($6, '')::uuid,
			is_paused = $7,
			paused_at = $8,
			paused_by = NULLIF($9, ''),
			pause_reason = NULLIF($10, ''),
			version = version + 1,
			updated_at = now()
		WHERE id = $1::uuid AND version = $11
		RETURNING version, updated_at
	`
	var (
		version   int64
		updatedAt time.Time
	)
	err = r.db.QueryRow(ctx, query,
		c.ID, name, searchArg, draftArg,
		c.UserCity, c.PreferredBranchID,
		c.Paused, c.PausedAt, c.PausedBy, c.PauseReason,
		c.Version,
	).Scan(&version, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("whatsapp: save conversation: %w", err)
	}
	c.Version = version
	c.UpdatedAt = updatedAt
	return nil
}

func jsonArg[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: encode payload: %w", err)
	}
	return b, nil
}

// AppendMessage inserts a message and bumps the conversation counters.
func (r *PostgresRepository) AppendMessage(ctx context.Context, in NewMessage) (*Message, error) {
	id := uuid.NewString()
	responseMS := in.responseTimeMS()
	query := `
		WITH inserted AS (
			INSERT INTO whatsapp_messages (id, conversation_id, role, content, sent_by_human, sent_by_user_id, intent, response_time_ms)
			VALUES ($1, $2::uuid, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
			RETURNING created_at
		), bumped AS (
			UPDATE whatsapp_conversations
			SET message_count = message_count + 1,
				last_message_at = (SELECT created_at FROM inserted)
			WHERE id = $2::uuid
		)
		SELECT created_at FROM inserted
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id, in.ConversationID, string(in.Role), in.Content,
		in.SentByHuman, in.SentByUserID, in.Intent, responseMS,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("whatsapp: insert message: %w", err)
	}
	return &Message{
		ID:             id,
		ConversationID: in.ConversationID,
		Role:           in.Role,
		Content:        in.Content,
		SentByHuman:    in.SentByHuman,
		SentByUserID:   in.SentByUserID,
		Intent:         in.Intent,
		ResponseTimeMS: responseMS,
		CreatedAt:      createdAt,
	}, nil
}

// Pause flags the conversation for human takeover.
func (r *PostgresRepository) Pause(ctx context.Context, id string, req PauseRequest) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE whatsapp_conversations
		SET is_paused = true, paused_at = now(), paused_by = $2, pause_reason = NULLIF($3, ''),
			version = version + 1, updated_at = now()
		WHERE id = $1::uuid
	`, id, req.PausedBy, req.Reason)
	if err != nil {
		return fmt.Errorf("whatsapp: pause conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Resume returns the conversation to automated handling.
func (r *PostgresRepository) Resume(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE whatsapp_conversations
		SET is_paused = false, paused_at = NULL, paused_by = NULL, pause_reason = NULL,
			version = version + 1, updated_at = now()
		WHERE id = $1::uuid
	`, id)
	if err != nil {
		return fmt.Errorf("whatsapp: resume conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus changes the lifecycle status. Conversations are never deleted.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("whatsapp: invalid status %q", status)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE whatsapp_conversations SET status = $2, updated_at = now() WHERE id = $1::uuid`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("whatsapp: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentMessages returns up to limit latest messages in chronological order.
func (r *PostgresRepository) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id::text, conversation_id::text, role, content, sent_by_human,
			COALESCE(sent_by_user_id, ''), COALESCE(intent, ''), response_time_ms, created_at
		FROM whatsapp_messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: select messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			m    Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.SentByHuman,
			&m.SentByUserID, &m.Intent, &m.ResponseTimeMS, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("whatsapp: scan message: %w", err)
		}
		m.Role = Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("whatsapp: iterate messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
