package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/pkg/config"
	"github.com/giftree-kr/giftree-backend/pkg/db/models"
	"github.com/giftree-kr/giftree-backend/pkg/enums"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (r *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if limit < len(r.events) {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *fakeRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	r.failed = append(r.failed, id)
	return nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if len(p.results) == 0 {
		return fakePublishResult{}
	}
	result := p.results[0]
	p.results = p.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error {
	return nil
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	service, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logg,
		DB:         okPinger{},
		PubSub:     okPinger{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func outboxRow(t *testing.T) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCheckoutCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustPayload(t, map[string]string{"order_id": uuid.NewString()}),
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{outboxRow(t), outboxRow(t)}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestServiceProcessBatchSetsMessageAttributes(t *testing.T) {
	row := outboxRow(t)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one published message got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventCheckoutCompleted) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != row.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != string(row.Payload) {
		t.Fatalf("payload was not forwarded verbatim")
	}
}

func TestServiceProcessBatchEmptyIsIdle(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected idle batch")
	}
}

func TestServiceProcessBatchPropagatesFetchError(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("db down")}
	service := newTestService(t, repo, &fakePublisher{})

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected fetch error to propagate")
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	_, err := NewService(ServiceParams{
		Config: &config.Config{},
		Logger: logg,
		DB:     okPinger{},
		PubSub: okPinger{},
	})
	if err == nil {
		t.Fatalf("expected missing repository to fail")
	}
}
