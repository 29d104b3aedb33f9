// Package reporting serves read-only admin queries over conversations.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
)

// Open connects a database/sql handle through the lib/pq driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("reporting: open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Store runs admin list and stats queries.
type Store struct {
	db *sql.DB
}

// NewStore wraps db. A nil db yields a nil store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// ConversationSummary is one row of the admin conversation list.
type ConversationSummary struct {
	ID            string     `json:"id"`
	Phone         string     `json:"phone"`
	ContactName   string     `json:"contact_name,omitempty"`
	Status        string     `json:"status"`
	Paused        bool       `json:"is_paused"`
	PausedBy      string     `json:"paused_by,omitempty"`
	PauseReason   string     `json:"pause_reason,omitempty"`
	MessageCount  int        `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	State         string     `json:"conversation_state"`
	UserCity      string     `json:"user_city,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListFilter narrows ListConversations. Zero values mean "any".
type ListFilter struct {
	Statuses []string
	Paused   *bool
	Limit    int
	Offset   int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListConversations returns conversations ordered by most recent activity.
func (s *Store) ListConversations(ctx context.Context, f ListFilter) ([]ConversationSummary, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	var statuses []string
	if len(f.Statuses) > 0 {
		statuses = f.Statuses
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id::text, phone, COALESCE(contact_name, ''), status, is_paused,
			COALESCE(paused_by, ''), COALESCE(pause_reason, ''), message_count,
			last_message_at, conversation_state, COALESCE(user_city, ''), created_at
		FROM whatsapp_conversations
		WHERE ($1::text[] IS NULL OR status = ANY($1))
			AND ($2::boolean IS NULL OR is_paused = $2)
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $3 OFFSET $4
	`, pq.Array(statuses), f.Paused, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("reporting: list conversations: %w", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var (
			c    ConversationSummary
			last sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Phone, &c.ContactName, &c.Status, &c.Paused,
			&c.PausedBy, &c.PauseReason, &c.MessageCount,
			&last, &c.State, &c.UserCity, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("reporting: scan conversation: %w", err)
		}
		if last.Valid {
			t := last.Time
			c.LastMessageAt = &t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reporting: iterate conversations: %w", err)
	}
	return out, nil
}

// ListPaused returns conversations waiting on a human.
func (s *Store) ListPaused(ctx context.Context, limit int) ([]ConversationSummary, error) {
	paused := true
	return s.ListConversations(ctx, ListFilter{Paused: &paused, Limit: limit})
}

// Stats summarizes conversations created within the window.
type Stats struct {
	Total                      int     `json:"total"`
	Active                     int     `json:"active"`
	Paused                     int     `json:"paused"`
	TotalMessages              int     `json:"total_messages"`
	AvgMessagesPerConversation float64 `json:"avg_messages_per_conversation"`
}

// ConversationStats aggregates conversations created in the last days days.
func (s *Store) ConversationStats(ctx context.Context, days int) (Stats, error) {
	if days <= 0 {
		days = 30
	}
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE is_paused),
			COALESCE(SUM(message_count), 0)
		FROM whatsapp_conversations
		WHERE created_at >= now() - make_interval(days => $1)
	`, days).Scan(&st.Total, &st.Active, &st.Paused, &st.TotalMessages)
	if err != nil {
		return Stats{}, fmt.Errorf("reporting: conversation stats: %w", err)
	}
	if st.Total > 0 {
		st.AvgMessagesPerConversation = math.Round(float64(st.TotalMessages)/float64(st.Total)*10) / 10
	}
	return st, nil
}
