package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, true); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	mr.Close()
	if dead := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); dead != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildLockerAndDeduper(t *testing.T) {
	cfg := &appconfig.Config{}
	if _, ok := BuildLocker(nil, cfg).(conversation.NoopLocker); !ok {
		t.Fatalf("expected noop locker without redis")
	}
	if _, ok := BuildDeduper(nil, cfg).(*conversation.MemoryDeduper); !ok {
		t.Fatalf("expected memory deduper without redis")
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	defer client.Close()
	if _, ok := BuildLocker(client, cfg).(*conversation.RedisLocker); !ok {
		t.Fatalf("expected redis locker")
	}
	if _, ok := BuildDeduper(client, cfg).(*conversation.RedisDeduper); !ok {
		t.Fatalf("expected redis deduper")
	}
}

func TestBuildPostgresPoolWithoutURL(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), &appconfig.Config{}, nil)
	if err != nil || pool != nil {
		t.Fatalf("expected nil pool without DATABASE_URL, got %v %v", pool, err)
	}
	if _, err := BuildPostgresPool(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildRepositoryFallsBackToMemory(t *testing.T) {
	if _, ok := BuildRepository(nil, logging.New("error")).(*whatsapp.MemoryRepository); !ok {
		t.Fatalf("expected memory repository without a pool")
	}
}

func TestBuildQueue(t *testing.T) {
	q, err := BuildQueue(&appconfig.Config{UseMemoryQueue: true}, aws.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := q.(*conversation.MemoryQueue); !ok {
		t.Fatalf("expected memory queue, got %T", q)
	}

	if _, err := BuildQueue(&appconfig.Config{}, aws.Config{}); err == nil {
		t.Fatalf("expected error without queue url")
	}

	q, err = BuildQueue(&appconfig.Config{ConversationQueueURL: "http://localhost:4566/000000000000/turns.fifo"}, aws.Config{Region: "us-east-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := q.(*conversation.SQSQueue); !ok {
		t.Fatalf("expected sqs queue, got %T", q)
	}
}

func TestBuildJobStoreSelection(t *testing.T) {
	if store := BuildJobStore(&appconfig.Config{}, aws.Config{}, nil, nil); store != nil {
		t.Fatalf("expected no job store without table or database")
	}
	store := BuildJobStore(&appconfig.Config{ConversationJobsTable: "conversation-jobs"}, aws.Config{Region: "us-east-1"}, nil, nil)
	if _, ok := store.(*conversation.JobStore); !ok {
		t.Fatalf("expected dynamo job store, got %T", store)
	}
}

func TestBuildProcessorRequiresEngine(t *testing.T) {
	_, err := BuildProcessor(&appconfig.Config{}, ProcessorDeps{Repo: whatsapp.NewMemoryRepository()}, nil)
	if err == nil {
		t.Fatalf("expected error without engine")
	}
}
