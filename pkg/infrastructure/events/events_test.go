package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/infrastructure/config"
)

var eventTime = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type recordingHandler struct {
	types []string
	seen  []Event
	err   error
}

func (h *recordingHandler) Handle(event Event) error {
	h.seen = append(h.seen, event)
	return h.err
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	if len(h.types) == 0 {
		return true
	}
	for _, t := range h.types {
		if t == eventType {
			return true
		}
	}
	return false
}

func TestInMemoryEventStore_VersionsPerStream(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	require.NoError(t, store.AppendEvent("stand-1", NewTaxRecordedEvent("stand-1", decimal.NewFromFloat(0.25), decimal.NewFromInt(10), eventTime)))
	require.NoError(t, store.AppendEvent("stand-2", NewTaxRecordedEvent("stand-2", decimal.NewFromFloat(0.25), decimal.NewFromInt(5), eventTime)))
	require.NoError(t, store.AppendEvent("stand-1", NewProductionCompletedEvent("stand-1", 3, 8, eventTime)))

	stream, err := store.ReadEvents("stand-1", 1)
	require.NoError(t, err)
	require.Len(t, stream, 2)
	assert.Equal(t, 1, stream[0].Version())
	assert.Equal(t, 2, stream[1].Version())
	assert.Equal(t, ProductionCompletedEvent, stream[1].Type())
	assert.Equal(t, eventTime, stream[1].Timestamp())

	all, err := store.ReadAllEvents(1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := store.ReadEvents("missing", 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryEventStore_NotifiesSynchronously(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	sales := &recordingHandler{types: []string{SaleRecordedEvent}}
	everything := &recordingHandler{}

	require.NoError(t, store.Subscribe([]string{SaleRecordedEvent}, sales))
	require.NoError(t, store.Subscribe([]string{AllEvents}, everything))

	sale := NewSaleRecordedEvent("stand-1", "agent-1", 4, decimal.NewFromInt(12), decimal.NewFromFloat(7.2), eventTime)
	require.NoError(t, store.AppendEvent("stand-1", sale))
	require.NoError(t, store.AppendEvent("stand-1", NewProductionCompletedEvent("stand-1", 2, 6, eventTime)))

	require.Len(t, sales.seen, 1)
	data, ok := sales.seen[0].Data().(SaleRecordedData)
	require.True(t, ok)
	assert.Equal(t, entities.Quantity(4), data.Quantity)
	assert.Len(t, everything.seen, 2)

	require.NoError(t, store.Unsubscribe(everything))
	require.NoError(t, store.AppendEvent("stand-1", sale))
	assert.Len(t, everything.seen, 2)
	assert.Len(t, sales.seen, 2)
}

func TestInMemoryEventStore_HandlerFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := NewInMemoryEventStore(zap.New(core))
	failing := &recordingHandler{err: errors.New("boom")}
	require.NoError(t, store.Subscribe([]string{AllEvents}, failing))

	err := store.AppendEvent(MarketStream, NewEnvironmentRefreshedEvent("San Diego", entities.NeutralSignal, eventTime))
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "event handler failed", entry.Message)
	assert.Equal(t, EnvironmentRefreshedEvent, entry.ContextMap()["event_type"])
}

func TestLoggingHandler_FiltersTypes(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := NewLoggingHandler(zap.New(core), PayrollProcessedEvent)

	assert.True(t, h.CanHandle(PayrollProcessedEvent))
	assert.False(t, h.CanHandle(SaleRecordedEvent))

	rec := entities.PayrollRecord{PartyID: "stand-1", ProcessedAt: eventTime, Total: decimal.NewFromInt(100)}
	require.NoError(t, h.Handle(NewPayrollProcessedEvent(rec)))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "stand-1", logs.All()[0].ContextMap()["stream_id"])

	assert.True(t, NewLoggingHandler(nil).CanHandle(SaleRecordedEvent))
}

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestRedisPublisher_Handle(t *testing.T) {
	stream := &fakeStream{}
	pub := NewRedisPublisher(stream, "marketsim:events", 500, nil)

	event := NewTaxRecordedEvent("stand-1", decimal.NewFromFloat(0.25), decimal.NewFromFloat(12.5), eventTime)
	require.NoError(t, pub.Handle(event))

	require.Len(t, stream.args, 1)
	args := stream.args[0]
	assert.Equal(t, "marketsim:events", args.Stream)
	assert.Equal(t, int64(500), args.MaxLen)
	assert.True(t, args.Approx)

	values, ok := args.Values.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, TaxRecordedEvent, values["type"])
	assert.Equal(t, "stand-1", values["stream"])

	var data TaxRecordedData
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &data))
	assert.True(t, data.Amount.Equal(decimal.NewFromFloat(12.5)))
}

func TestRedisPublisher_HandleError(t *testing.T) {
	pub := NewRedisPublisher(&fakeStream{err: errors.New("connection refused")}, "s", 0, nil)
	err := pub.Handle(NewProductionCompletedEvent("stand-1", 1, 1, eventTime))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis xadd s failed")
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.EventsConfig{RedisHost: "cache", RedisPort: 6380, RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.EventsConfig{RedisURL: "redis://:secret@example.com:6390/3"})
	require.NoError(t, err)
	assert.Equal(t, "example.com:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.EventsConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}
