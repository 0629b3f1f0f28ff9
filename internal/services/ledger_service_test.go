package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladysonss/opensheets-app-sub000/internal/amqp"
	"github.com/gladysonss/opensheets-app-sub000/internal/cache"
	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	"github.com/gladysonss/opensheets-app-sub000/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEventMessage
	err    error
	closed bool
}

func (p *recordingPublisher) PublishEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, msg)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func newService(t *testing.T, pub EventPublisher) (*LedgerService, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf, Component: log.ComponentApp})
	engine := ledger.New(memory.NewStore())
	return NewLedgerService(engine, pub, cache.NewReferenceCache(10, time.Minute), logger), &buf
}

func pixSeries(n int) ledger.CreateRequest {
	return ledger.CreateRequest{
		UserID:           "u1",
		Name:             "Phone",
		AmountCents:      int64(n) * 1000,
		Type:             core.Expense,
		Condition:        core.Installment,
		PaymentMethod:    core.Pix,
		PurchaseDate:     core.NewDate(2024, 6, 10),
		InstallmentCount: n,
	}
}

func TestLedgerService_CreatePublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc, logs := newService(t, pub)

	out, err := svc.Create(context.Background(), pixSeries(3))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
	assert.Contains(t, out.Message, "3 installments")

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, amqp.SeriesCreated, ev.Type)
	assert.Equal(t, out.Instances[0].Series.String(), ev.SeriesID)
	assert.Len(t, ev.InstanceIDs, 3)
	assert.Contains(t, logs.String(), `"operation":"create"`)
}

func TestLedgerService_PublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	svc, logs := newService(t, pub)

	out, err := svc.Create(context.Background(), pixSeries(2))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Contains(t, logs.String(), "Failed to publish ledger event")
}

func TestLedgerService_ErrorsAreTyped(t *testing.T) {
	svc, logs := newService(t, nil)
	req := pixSeries(2)
	req.InstallmentCount = 1

	_, err := svc.Create(context.Background(), req)
	var e *core.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, core.KindValidation, e.Kind)
	assert.Contains(t, logs.String(), "Ledger operation rejected")
}

func TestLedgerService_DeleteAndAnticipateEvents(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	out, err := svc.Create(ctx, pixSeries(4))
	require.NoError(t, err)
	seriesID := out.Instances[0].Series.String()

	ant, err := svc.Anticipate(ctx, ledger.AnticipationRequest{
		UserID:       "u1",
		SeriesID:     seriesID,
		SelectedIDs:  []string{out.Instances[2].ID, out.Instances[3].ID},
		TargetPeriod: core.NewPeriod(2024, time.July),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-2000), ant.Instances[0].Amount.Cents)
	assert.Equal(t, ant.Instances[0].ID, ant.Record.InstanceID)

	del, err := svc.Delete(ctx, "u1", out.Instances[1].ID, ledger.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, 2, del.Count)

	require.Len(t, pub.events, 3)
	assert.Equal(t, amqp.AnticipationCreated, pub.events[1].Type)
	assert.ElementsMatch(t, []string{out.Instances[2].ID, out.Instances[3].ID}, pub.events[1].RemovedIDs)
	assert.Equal(t, amqp.SeriesDeleted, pub.events[2].Type)
	assert.Len(t, pub.events[2].RemovedIDs, 2)
}

func TestLedgerService_SettlementMessages(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	card := pixSeries(2)
	card.PaymentMethod = core.CreditCard
	created, err := svc.Create(ctx, card)
	require.NoError(t, err)

	out, err := svc.SetSettled(ctx, "u1", created.Instances[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.Contains(t, out.Message, "card invoice")

	pix, err := svc.Create(ctx, pixSeries(2))
	require.NoError(t, err)
	paid := true
	out, err = svc.SetSettled(ctx, "u1", pix.Instances[1].ID, &paid)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "Marked as paid", out.Message)

	out, err = svc.SetSettled(ctx, "u1", pix.Instances[1].ID, &paid)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to change", out.Message)

	assert.Equal(t, amqp.SettlementChanged, pub.events[len(pub.events)-1].Type)
	assert.Len(t, pub.events, 3)
}

func TestLedgerService_ReferenceCache(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.ResolveReference(ctx, "u1", core.RefCategory, "Food")
	require.ErrorIs(t, err, core.ErrNotFound)

	ref, err := svc.EnsureReference(ctx, "u1", core.RefCategory, "Food")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.refs.Size())

	got, err := svc.ResolveReference(ctx, "u1", core.RefCategory, "FOOD")
	require.NoError(t, err)
	assert.Equal(t, ref.ID, got.ID)
}

func TestLedgerService_Close(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newService(t, pub)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)

	bare, _ := newService(t, nil)
	assert.NoError(t, bare.Close())
}
