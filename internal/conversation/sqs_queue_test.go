package conversation

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	sent    []*sqs.SendMessageInput
	deleted []string
	out     *sqs.ReceiveMessageOutput
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.out == nil {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	return f.out, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSQueueFIFOGroupsByPhone(t *testing.T) {
	client := &fakeSQS{}
	q := NewSQSQueue(client, "https://sqs.us-east-1.amazonaws.com/123/turns.fifo")

	require.NoError(t, q.Send(context.Background(), `{"id":"1"}`, "+549381"))
	require.NoError(t, q.Send(context.Background(), `{"id":"1"}`, "+549381"))
	require.Len(t, client.sent, 2)
	assert.Equal(t, "+549381", aws.ToString(client.sent[0].MessageGroupId))
	assert.NotEmpty(t, aws.ToString(client.sent[0].MessageDeduplicationId))
	assert.Equal(t, aws.ToString(client.sent[0].MessageDeduplicationId), aws.ToString(client.sent[1].MessageDeduplicationId))
}

func TestSQSQueueStandardHasNoGroup(t *testing.T) {
	client := &fakeSQS{}
	q := NewSQSQueue(client, "https://sqs.us-east-1.amazonaws.com/123/turns")

	require.NoError(t, q.Send(context.Background(), "{}", "+549381"))
	assert.Nil(t, client.sent[0].MessageGroupId)
}

func TestSQSQueueReceiveAndDelete(t *testing.T) {
	client := &fakeSQS{out: &sqs.ReceiveMessageOutput{Messages: []types.Message{
		{MessageId: aws.String("m-1"), Body: aws.String("{}"), ReceiptHandle: aws.String("rh-1")},
	}}}
	q := NewSQSQueue(client, "https://sqs/turns")

	msgs, err := q.Receive(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "rh-1", msgs[0].ReceiptHandle)

	require.NoError(t, q.Delete(context.Background(), "rh-1"))
	require.NoError(t, q.Delete(context.Background(), ""))
	assert.Equal(t, []string{"rh-1"}, client.deleted)
}

func TestMemoryQueueBatches(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()
	for _, body := range []string{"a", "b", "c"} {
		require.NoError(t, q.Send(ctx, body, ""))
	}
	assert.Equal(t, 3, q.Len())

	msgs, err := q.Receive(ctx, 2, 1)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = q.Receive(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "c", msgs[0].Body)
}
