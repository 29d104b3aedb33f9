package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store writes conversation transcripts to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// TranscriptKey returns the object key for a transcript archived at the given time.
func TranscriptKey(conversationID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("transcripts/v1/by-date/%d/%02d/%02d/%s.json", at.Year(), at.Month(), at.Day(), conversationID)
}

// PutTranscript writes t as JSON and appends it to the monthly manifest. It
// returns the object key.
func (s *Store) PutTranscript(ctx context.Context, t *Transcript) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("archive: marshal transcript: %w", err)
	}

	at := t.ArchivedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	key := TranscriptKey(t.ConversationID, at)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("archived conversation transcript",
		"conversation_id", t.ConversationID,
		"s3_key", key,
		"message_count", t.MessageCount,
	)

	entry := ManifestEntry{
		ConversationID: t.ConversationID,
		S3Key:          key,
		ArchivedAt:     at.Format(time.RFC3339),
		MessageCount:   t.MessageCount,
		HandedOff:      t.HandedOff,
		TopIntent:      topIntent(t.Intents),
	}
	if err := s.AppendManifest(ctx, at, entry); err != nil {
		// The transcript itself is stored; a missing manifest line is recoverable.
		s.logger.Warn("failed to append manifest", "error", err, "conversation_id", t.ConversationID)
	}
	return key, nil
}

// AppendManifest appends a JSONL line to the manifest for the month of at.
// S3 has no append, so this is a read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, at time.Time, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	at = at.UTC()
	manifestKey := fmt.Sprintf("transcripts/v1/manifests/%d-%02d.jsonl", at.Year(), at.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	return errors.As(err, &nf)
}

func topIntent(counts map[string]int) string {
	best, bestN := "", 0
	for intent, n := range counts {
		if n > bestN || (n == bestN && intent < best) {
			best, bestN = intent, n
		}
	}
	return best
}
