package whatsapp

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle status of a conversation.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusResolved, StatusArchived:
		return true
	}
	return false
}

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PendingTireSearch holds a parsed tire size while the user's branch is resolved.
type PendingTireSearch struct {
	Width           int    `json:"width"`
	Profile         int    `json:"profile"`
	Diameter        int    `json:"diameter"`
	OriginalMessage string `json:"originalMessage"`
	// TransferFromBranch is the branch code offered for an inter-branch transfer.
	TransferFromBranch string `json:"transferFromBranch,omitempty"`
}

// HasSize reports whether the search carries a complete tire size.
func (s PendingTireSearch) HasSize() bool {
	return s.Width > 0 && s.Profile > 0 && s.Diameter > 0
}

// SizeDisplay renders the size as 205/55R16.
func (s PendingTireSearch) SizeDisplay() string {
	return fmt.Sprintf("%d/%dR%d", s.Width, s.Profile, s.Diameter)
}

// PendingAppointment is the booking draft accumulated across appointment steps.
type PendingAppointment struct {
	Province         string    `json:"province,omitempty"`
	BranchID         string    `json:"branch_id,omitempty"`
	BranchName       string    `json:"branch_name,omitempty"`
	SelectedServices []string  `json:"selected_services"`
	PreferredDate    string    `json:"preferred_date,omitempty"`
	PreferredTime    string    `json:"preferred_time,omitempty"`
	CustomerName     string    `json:"customer_name,omitempty"`
	CustomerPhone    string    `json:"customer_phone,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

// NewPendingAppointment starts an empty draft for the given phone.
func NewPendingAppointment(phone string, now time.Time) PendingAppointment {
	return PendingAppointment{
		SelectedServices: []string{},
		CustomerPhone:    phone,
		StartedAt:        now,
	}
}

// Clone returns a deep copy of the draft.
func (p PendingAppointment) Clone() PendingAppointment {
	out := p
	out.SelectedServices = append([]string{}, p.SelectedServices...)
	return out
}

// HasService reports whether id is already selected.
func (p PendingAppointment) HasService(id string) bool {
	for _, s := range p.SelectedServices {
		if s == id {
			return true
		}
	}
	return false
}

// AddService appends id unless it is already selected. Selection order is kept.
func (p *PendingAppointment) AddService(id string) bool {
	if id == "" || p.HasService(id) {
		return false
	}
	p.SelectedServices = append(p.SelectedServices, id)
	return true
}

// Missing lists the Spanish names of fields still needed to book.
func (p PendingAppointment) Missing() []string {
	var missing []string
	if p.Province == "" {
		missing = append(missing, "provincia")
	}
	if p.BranchID == "" {
		missing = append(missing, "sucursal")
	}
	if len(p.SelectedServices) == 0 {
		missing = append(missing, "servicios")
	}
	if p.PreferredDate == "" {
		missing = append(missing, "fecha")
	}
	if p.PreferredTime == "" {
		missing = append(missing, "hora")
	}
	if p.CustomerName == "" {
		missing = append(missing, "nombre")
	}
	return missing
}

// Conversation is the per-phone conversation record.
type Conversation struct {
	ID                string
	Phone             string
	ContactName       string
	Status            Status
	Paused            bool
	PausedAt          *time.Time
	PausedBy          string
	PauseReason       string
	MessageCount      int
	LastMessageAt     *time.Time
	UserCity          string
	PreferredBranchID string
	State             ConversationState
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasLocation reports whether the user's city and branch are already known.
func (c *Conversation) HasLocation() bool {
	return c != nil && c.UserCity != "" && c.PreferredBranchID != ""
}

// PauseRequest describes a human takeover.
type PauseRequest struct {
	PausedBy string
	Reason   string
}

// Pause marks the conversation as taken over by a human.
func (c *Conversation) Pause(req PauseRequest, at time.Time) {
	c.Paused = true
	c.PausedAt = &at
	c.PausedBy = req.PausedBy
	c.PauseReason = req.Reason
}

// Resume clears the human takeover flags.
func (c *Conversation) Resume() {
	c.Paused = false
	c.PausedAt = nil
	c.PausedBy = ""
	c.PauseReason = ""
}

// Message is one inbound or outbound turn.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	SentByHuman    bool      `json:"sent_by_human"`
	SentByUserID   string    `json:"sent_by_user_id,omitempty"`
	Intent         string    `json:"intent,omitempty"`
	ResponseTimeMS *int      `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessage is the input for Repository.AppendMessage.
type NewMessage struct {
	ConversationID string
	Role           Role
	Content        string
	SentByHuman    bool
	SentByUserID   string
	Intent         string
	ResponseTime   time.Duration
}

func (m NewMessage) responseTimeMS() *int {
	if m.Role != RoleAssistant || m.ResponseTime <= 0 {
		return nil
	}
	ms := int(m.ResponseTime.Milliseconds())
	return &ms
}

// NormalizePhone strips everything but digits so channel prefixes map to one key.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
