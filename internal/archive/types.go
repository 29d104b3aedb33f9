package archive

import "time"

// transcriptVersion is bumped when the Transcript layout changes.
const transcriptVersion = "1.0"

// Transcript is the JSON document written to S3 when a conversation is archived.
type Transcript struct {
	Version         string         `json:"version"`
	ConversationID  string         `json:"conversation_id"`
	PhoneHash       string         `json:"phone_hash"` // sha256 of the normalized phone
	ContactName     string         `json:"contact_name,omitempty"`
	ArchivedAt      time.Time      `json:"archived_at"`
	StartedAt       time.Time      `json:"started_at"`
	DurationSeconds int            `json:"duration_seconds"`
	MessageCount    int            `json:"message_count"`
	HumanReplies    int            `json:"human_replies"`
	HandedOff       bool           `json:"handed_off"`
	Intents         map[string]int `json:"intents,omitempty"`
	Messages        []Message      `json:"messages"`
}

// Message is a single transcript line.
type Message struct {
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	SentByHuman bool      `json:"sent_by_human,omitempty"`
	Intent      string    `json:"intent,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	ConversationID string `json:"conversation_id"`
	S3Key          string `json:"s3_key"`
	ArchivedAt     string `json:"archived_at"`
	MessageCount   int    `json:"message_count"`
	HandedOff      bool   `json:"handed_off"`
	TopIntent      string `json:"top_intent,omitempty"`
}
