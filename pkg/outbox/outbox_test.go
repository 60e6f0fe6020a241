package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harvestlink/agrimarket/pkg/config"
	"github.com/harvestlink/agrimarket/pkg/db"
	"github.com/harvestlink/agrimarket/pkg/db/models"
	"github.com/harvestlink/agrimarket/pkg/enums"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) { return r.id, r.err }

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) PublishResult {
	p.messages = append(p.messages, msg)
	if p.err != nil {
		return fakeResult{err: p.err}
	}
	return fakeResult{id: fmt.Sprintf("msg-%d", len(p.messages))}
}

func newTestDB(t *testing.T) *db.Client {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}))
	client := db.Wrap(conn, config.DriverSQLite)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func emitListing(t *testing.T, client *db.Client, svc *Service, eventType enums.OutboxEventType, id string) {
	t.Helper()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateListing,
			AggregateID:   id,
			Data:          map[string]string{"listing_id": id},
		})
	})
	require.NoError(t, err)
}

func TestEmitStoresEnvelope(t *testing.T) {
	client := newTestDB(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, logger.Nop())

	emitListing(t, client, svc, enums.EventListingUpdated, "lst-1")

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventListingUpdated, rows[0].EventType)
	require.Equal(t, "lst-1", rows[0].AggregateID)
	require.Nil(t, rows[0].PublishedAt)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	require.Equal(t, envelopeVersion, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.JSONEq(t, `{"listing_id":"lst-1"}`, string(envelope.Data))
}

func TestEmitRejectsUnknownTypesAndMissingTx(t *testing.T) {
	client := newTestDB(t)
	svc := NewService(NewRepository(client.DB()), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     "order_created",
			AggregateType: enums.AggregateListing,
		})
	})
	require.Error(t, err)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	client := newTestDB(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventListingDeleted,
			AggregateType: enums.AggregateListing,
			AggregateID:   "lst-2",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	pending, err := repo.Pending(nil)
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	client := newTestDB(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	emitListing(t, client, svc, enums.EventListingUpdated, "lst-1")
	emitListing(t, client, svc, enums.EventListingDeleted, "lst-2")

	fake := &fakePublisher{}
	pub, err := NewPublisher(PublisherParams{
		Logger:     logger.Nop(),
		DB:         client,
		Repository: repo,
		Publisher:  fake,
	})
	require.NoError(t, err)

	processed, err := pub.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	require.Len(t, fake.messages, 2)

	var first *gcppubsub.Message
	for _, msg := range fake.messages {
		if msg.Attributes["aggregate_id"] == "lst-1" {
			first = msg
		}
	}
	require.NotNil(t, first)
	require.Equal(t, "listing_updated", first.Attributes["event_type"])
	require.Equal(t, "lst-1", first.Attributes["aggregate_id"])
	require.NotEmpty(t, first.Attributes["event_id"])
	var body map[string]string
	require.NoError(t, json.Unmarshal(first.Data, &body))
	require.Equal(t, "lst-1", body["listing_id"])

	pending, err := repo.Pending(nil)
	require.NoError(t, err)
	require.Zero(t, pending)

	processed, err = pub.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, processed)
}

func TestProcessBatchStopsAfterMaxAttempts(t *testing.T) {
	client := newTestDB(t)
	repo := NewRepository(client.DB())
	emitListing(t, client, NewService(repo, nil), enums.EventListingUpdated, "lst-3")

	fake := &fakePublisher{err: errors.New("topic unavailable")}
	pub, err := NewPublisher(PublisherParams{
		Logger:      logger.Nop(),
		DB:          client,
		Repository:  repo,
		Publisher:   fake,
		MaxAttempts: 2,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		processed, err := pub.ProcessBatch(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, processed)
	}
	processed, err := pub.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, processed)

	var row models.OutboxEvent
	require.NoError(t, client.DB().First(&row).Error)
	require.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	require.Contains(t, *row.LastError, "topic unavailable")
	require.Nil(t, row.PublishedAt)
}

func TestRunStopsOnCancel(t *testing.T) {
	client := newTestDB(t)
	repo := NewRepository(client.DB())
	pub, err := NewPublisher(PublisherParams{
		Logger:       logger.Nop(),
		DB:           client,
		Repository:   repo,
		Publisher:    &fakePublisher{},
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, pub.Run(ctx), context.DeadlineExceeded)
}

func TestNewPublisherValidatesParams(t *testing.T) {
	_, err := NewPublisher(PublisherParams{})
	require.Error(t, err)
	_, err = NewPublisher(PublisherParams{Logger: logger.Nop()})
	require.Error(t, err)
	require.Nil(t, NewPubSubPublisher(nil))
}

func TestNextBackoffCaps(t *testing.T) {
	require.Equal(t, 2*time.Second, nextBackoff(time.Second, time.Second, maxBackoff))
	require.Equal(t, maxBackoff, nextBackoff(8*time.Second, time.Second, maxBackoff))
	require.Equal(t, 2*time.Second, nextBackoff(0, time.Second, maxBackoff))
}
