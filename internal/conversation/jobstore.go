package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Job records are kept for a day; the table TTL attribute is expiresAt.
const jobTTL = 24 * time.Hour

// JobStatus is where a queued turn is in its life.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ErrJobNotFound is returned for an unknown job id.
var ErrJobNotFound = errors.New("conversation: job not found")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// JobRecord is the status row of one queued turn, polled by the admin API.
type JobRecord struct {
	JobID          string          `dynamodbav:"jobId" json:"jobId"`
	Status         JobStatus       `dynamodbav:"status" json:"status"`
	RequestType    jobType         `dynamodbav:"requestType" json:"requestType"`
	ConversationID string          `dynamodbav:"conversationId,omitempty" json:"conversationId,omitempty"`
	Inbound        *InboundMessage `dynamodbav:"inbound,omitempty" json:"inbound,omitempty"`
	Result         *TurnResult     `dynamodbav:"result,omitempty" json:"result,omitempty"`
	ErrorMessage   string          `dynamodbav:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt      string          `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt      string          `dynamodbav:"updatedAt" json:"updatedAt"`
	ExpiresAt      int64           `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// JobRecorder is the publisher side: create a record and read it back.
type JobRecorder interface {
	PutPending(ctx context.Context, job *JobRecord) error
	GetJob(ctx context.Context, jobID string) (*JobRecord, error)
}

// JobUpdater is the worker side: close a record with its outcome.
type JobUpdater interface {
	MarkCompleted(ctx context.Context, jobID string, res *TurnResult) error
	MarkFailed(ctx context.Context, jobID string, errMsg string) error
}

// JobStore keeps turn job records in a DynamoDB table keyed by jobId.
type JobStore struct {
	client dynamoAPI
	table  string
	logger *logging.Logger
	now    func() time.Time
}

var (
	_ JobRecorder = (*JobStore)(nil)
	_ JobUpdater  = (*JobStore)(nil)
)

func NewJobStore(client dynamoAPI, tableName string, logger *logging.Logger) *JobStore {
	if client == nil {
		panic("conversation: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("conversation: job table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &JobStore{
		client: client,
		table:  tableName,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PutPending writes a new pending record. An existing jobId is never overwritten,
// so a redelivered publish fails instead of resetting a finished job.
func (s *JobStore) PutPending(ctx context.Context, job *JobRecord) error {
	if job == nil {
		return errors.New("conversation: job cannot be nil")
	}
	now := s.now()
	job.Status = JobStatusPending
	job.CreatedAt = stamp(now)
	job.UpdatedAt = job.CreatedAt
	if job.ExpiresAt == 0 {
		job.ExpiresAt = now.Add(jobTTL).Unix()
	}

	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("conversation: encode job %s: %w", job.JobID, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(jobId)"),
	}); err != nil {
		return fmt.Errorf("conversation: put job %s: %w", job.JobID, err)
	}
	return nil
}

func (s *JobStore) MarkCompleted(ctx context.Context, jobID string, res *TurnResult) error {
	if res == nil {
		res = &TurnResult{}
	}
	result, err := attributevalue.Marshal(res)
	if err != nil {
		return fmt.Errorf("conversation: encode result for job %s: %w", jobID, err)
	}
	return s.finish(ctx, jobID, jobOutcome{
		status:         JobStatusCompleted,
		result:         result,
		conversationID: res.ConversationID,
	})
}

// MarkFailed closes the job with errMsg and clears any earlier result.
func (s *JobStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	return s.finish(ctx, jobID, jobOutcome{
		status: JobStatusFailed,
		result: &types.AttributeValueMemberNULL{Value: true},
		errMsg: errMsg,
	})
}

func (s *JobStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	if jobID == "" {
		return nil, errors.New("conversation: job id is required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       jobKey(jobID),
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: get job %s: %w", jobID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrJobNotFound
	}

	var job JobRecord
	if err := attributevalue.UnmarshalMap(out.Item, &job); err != nil {
		return nil, fmt.Errorf("conversation: decode job %s: %w", jobID, err)
	}
	return &job, nil
}

type jobOutcome struct {
	status         JobStatus
	result         types.AttributeValue
	conversationID string
	errMsg         string
}

// finish applies the terminal update. status, result and errorMessage are
// DynamoDB reserved words, hence the #aliases.
func (s *JobStore) finish(ctx context.Context, jobID string, o jobOutcome) error {
	if jobID == "" {
		return errors.New("conversation: job id is required")
	}

	expr := "SET #status = :status, #result = :result, #error = :error, #updated = :updated"
	values := map[string]types.AttributeValue{
		":status":  &types.AttributeValueMemberS{Value: string(o.status)},
		":result":  o.result,
		":error":   &types.AttributeValueMemberS{Value: o.errMsg},
		":updated": &types.AttributeValueMemberS{Value: stamp(s.now())},
	}
	if o.conversationID != "" {
		expr += ", conversationId = :conversation"
		values[":conversation"] = &types.AttributeValueMemberS{Value: o.conversationID}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              jobKey(jobID),
		UpdateExpression: aws.String(expr),
		ExpressionAttributeNames: map[string]string{
			"#status":  "status",
			"#result":  "result",
			"#error":   "errorMessage",
			"#updated": "updatedAt",
		},
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(jobId)"),
	})
	if err != nil {
		s.logger.Warn("conversation: job status update failed", "job_id", jobID, "status", o.status, "error", err)
		return fmt.Errorf("conversation: mark job %s %s: %w", jobID, o.status, err)
	}
	return nil
}

func jobKey(jobID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"jobId": &types.AttributeValueMemberS{Value: jobID}}
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
