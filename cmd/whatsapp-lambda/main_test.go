package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

type scriptedHandler struct {
	errs  map[string]error
	calls []string
}

func (s *scriptedHandler) HandleBody(_ context.Context, body string) error {
	s.calls = append(s.calls, body)
	return s.errs[body]
}

func TestHandleReportsBusyRecords(t *testing.T) {
	h := &scriptedHandler{errs: map[string]error{
		"busy": conversation.ErrLockHeld,
		"bad":  errors.New("conversation: failed to decode payload"),
	}}
	evt := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: "ok"},
		{MessageId: "m2", Body: "busy"},
		{MessageId: "m3", Body: "bad"},
	}}

	resp := handle(context.Background(), h, evt, logging.New("error"))

	assert.Equal(t, []string{"ok", "busy", "bad"}, h.calls)
	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m2"}}, resp.BatchItemFailures)
}

func TestHandleEmptyEvent(t *testing.T) {
	resp := handle(context.Background(), &scriptedHandler{}, events.SQSEvent{}, logging.New("error"))
	assert.Empty(t, resp.BatchItemFailures)
}
