package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
	getErr   error
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func TestStore_PutTranscript(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	now := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	transcript := &Transcript{
		Version:        transcriptVersion,
		ConversationID: "conv-123",
		PhoneHash:      HashPhone("5493815551234"),
		ArchivedAt:     now,
		MessageCount:   2,
		Intents:        map[string]int{"stock": 1},
		Messages: []Message{
			{Role: "user", Content: "205/55R16", Timestamp: now},
			{Role: "assistant", Content: "¿En qué ciudad estás?", Timestamp: now},
		},
	}

	key, err := store.PutTranscript(context.Background(), transcript)
	require.NoError(t, err)
	assert.Equal(t, "transcripts/v1/by-date/2026/03/09/conv-123.json", key)

	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "test-bucket", mock.putCalls[0].bucket)

	var decoded Transcript
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, "conv-123", decoded.ConversationID)

	assert.Equal(t, "transcripts/v1/manifests/2026-03.jsonl", mock.putCalls[1].key)
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry))
	assert.Equal(t, "conv-123", entry.ConversationID)
	assert.Equal(t, "stock", entry.TopIntent)
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())

	key, err := store.PutTranscript(context.Background(), &Transcript{})
	assert.NoError(t, err)
	assert.Empty(t, key)
}

func TestStore_ManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)
	at := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendManifest(context.Background(), at, ManifestEntry{ConversationID: "conv-1"}))
	require.NoError(t, store.AppendManifest(context.Background(), at, ManifestEntry{ConversationID: "conv-2"}))

	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestStore_ManifestReadFailureIsReturned(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("access denied")
	store := NewStore(mock, "test-bucket", nil)

	err := store.AppendManifest(context.Background(), time.Now(), ManifestEntry{ConversationID: "conv-1"})
	require.Error(t, err)
	assert.Empty(t, mock.putCalls, "manifest must not be overwritten when it cannot be read")
}

func TestTopIntent(t *testing.T) {
	assert.Equal(t, "", topIntent(nil))
	assert.Equal(t, "appointment", topIntent(map[string]int{"appointment": 3, "stock": 1}))
	assert.Equal(t, "appointment", topIntent(map[string]int{"stock": 2, "appointment": 2}))
}
