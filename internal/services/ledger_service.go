package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gladysonss/opensheets-app-sub000/internal/amqp"
	"github.com/gladysonss/opensheets-app-sub000/internal/cache"
	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
)

// EventPublisher delivers ledger events to interested collaborators.
type EventPublisher interface {
	PublishEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// Outcome is what the presentation layer receives for a successful
// operation.
type Outcome struct {
	Instances []core.Instance
	Count     int
	Message   string
}

// AnticipationOutcome adds the audit record to an Outcome.
type AnticipationOutcome struct {
	Outcome
	Record core.AnticipationRecord
}

// LedgerService commits ledger operations, logs them and publishes events.
// Events are best effort: a failed publish never fails a committed
// operation.
type LedgerService struct {
	engine    *ledger.Engine
	publisher EventPublisher
	refs      *cache.ReferenceCache
	logger    *log.Logger
	ops       *log.StructuredLogger
}

// NewLedgerService wires the engine. publisher and refs may be nil.
func NewLedgerService(engine *ledger.Engine, publisher EventPublisher, refs *cache.ReferenceCache, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		engine:    engine,
		publisher: publisher,
		refs:      refs,
		logger:    logger,
		ops:       log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) Create(ctx context.Context, req ledger.CreateRequest) (Outcome, error) {
	items, err := s.engine.Generate(ctx, req)
	if err != nil {
		return Outcome{}, s.fail(ctx, log.OpCreate, err, log.NewFields().WithSeries(req.UserID, ""))
	}
	seriesID := items[0].Series.String()
	s.ops.LogOperation(ctx, log.OpCreate, log.NewFields().WithSeries(req.UserID, seriesID).WithCount(len(items)))
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.SeriesCreated, req.UserID, seriesID, ids(items)))
	return Outcome{Instances: items, Count: len(items), Message: createdMessage(req.Condition, len(items))}, nil
}

func (s *LedgerService) Transfer(ctx context.Context, req ledger.TransferRequest) (Outcome, error) {
	legs, err := s.engine.GenerateTransfer(ctx, req)
	if err != nil {
		return Outcome{}, s.fail(ctx, log.OpTransfer, err, log.NewFields().WithSeries(req.UserID, ""))
	}
	s.ops.LogOperation(ctx, log.OpTransfer, log.NewFields().WithSeries(req.UserID, "").WithCount(len(legs)))
	msg := amqp.NewLedgerEventMessage(amqp.TransferCreated, req.UserID, "", ids(legs))
	s.publish(ctx, msg)
	return Outcome{Instances: legs, Count: len(legs), Message: "Transfer created"}, nil
}

func (s *LedgerService) Edit(ctx context.Context, userID, anchorID string, scope ledger.Scope, changes ledger.FieldChanges) (Outcome, error) {
	fields := log.NewFields().WithSeries(userID, "").WithScope(anchorID, string(scope))
	updated, err := s.engine.Edit(ctx, userID, anchorID, scope, changes)
	if err != nil {
		return Outcome{}, s.fail(ctx, log.OpEdit, err, fields)
	}
	seriesID := seriesOf(updated)
	s.ops.LogOperation(ctx, log.OpEdit, fields.WithSeries(userID, seriesID).WithCount(len(updated)))
	s.publish(ctx, amqp.NewLedgerEventMessage(amqp.SeriesUpdated, userID, seriesID, ids(updated)))
	return Outcome{Instances: updated, Count: len(updated), Message: fmt.Sprintf("%d %s updated", len(updated), plural(len(updated)))}, nil
}

func (s *LedgerService) Delete(ctx context.Context, userID, anchorID string, scope ledger.Scope) (Outcome, error) {
	fields := log.NewFields().WithSeries(userID, "").WithScope(anchorID, string(scope))
	deleted, err := s.engine.Delete(ctx, userID, anchorID, scope)
	if err != nil {
		return Outcome{}, s.fail(ctx, log.OpDelete, err, fields)
	}
	seriesID := seriesOf(deleted)
	s.ops.LogOperation(ctx, log.OpDelete, fields.WithSeries(userID, seriesID).WithCount(len(deleted)))
	msg := amqp.NewLedgerEventMessage(amqp.SeriesDeleted, userID, seriesID, nil)
	msg.RemovedIDs = ids(deleted)
	s.publish(ctx, msg)
	return Outcome{Instances: deleted, Count: len(deleted), Message: fmt.Sprintf("%d %s deleted", len(deleted), plural(len(deleted)))}, nil
}

// Affected previews a scoped mutation without changing anything.
func (s *LedgerService) Affected(ctx context.Context, userID, anchorID string, scope ledger.Scope) (Outcome, error) {
	items, err := s.engine.Affected(ctx, userID, anchorID, scope)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Instances: items, Count: len(items), Message: fmt.Sprintf("%d %s affected", len(items), plural(len(items)))}, nil
}

func (s *LedgerService) Anticipate(ctx context.Context, req ledger.AnticipationRequest) (AnticipationOutcome, error) {
	fields := log.NewFields().WithSeries(req.UserID, req.SeriesID)
	res, err := s.engine.Anticipate(ctx, req)
	if err != nil {
		return AnticipationOutcome{}, s.fail(ctx, log.OpAnticipate, err, fields)
	}
	s.ops.LogOperation(ctx, log.OpAnticipate, fields.WithCount(len(res.Consumed)))
	msg := amqp.NewLedgerEventMessage(amqp.AnticipationCreated, req.UserID, req.SeriesID, []string{res.Instance.ID})
	msg.RemovedIDs = res.Record.ConsumedIDs
	s.publish(ctx, msg)
	return AnticipationOutcome{
		Outcome: Outcome{
			Instances: []core.Instance{res.Instance},
			Count:     1,
			Message:   fmt.Sprintf("%d installments anticipated for %s", len(res.Consumed), res.Instance.Amount),
		},
		Record: res.Record,
	}, nil
}

// SetSettled changes the paid status. Entries whose status is managed
// elsewhere come back unchanged with an informational message.
func (s *LedgerService) SetSettled(ctx context.Context, userID, id string, settled *bool) (Outcome, error) {
	fields := log.NewFields().WithSeries(userID, "")
	fields[log.FieldInstanceID] = id

	var (
		res ledger.SettlementResult
		err error
	)
	if settled == nil {
		res, err = s.engine.Toggle(ctx, userID, id)
	} else {
		res, err = s.engine.SetSettled(ctx, userID, id, *settled)
	}
	if err != nil {
		return Outcome{}, s.fail(ctx, log.OpSettle, err, fields)
	}

	out := Outcome{Instances: []core.Instance{res.Instance}}
	switch {
	case res.Notice != "":
		out.Message = res.Notice
	case !res.Changed:
		out.Message = "Nothing to change"
	default:
		out.Count = 1
		out.Message = "Marked as unpaid"
		if res.Instance.Settled {
			out.Message = "Marked as paid"
		}
		s.ops.LogOperation(ctx, log.OpSettle, fields.WithSeries(userID, res.Instance.Series.String()))
		s.publish(ctx, amqp.NewLedgerEventMessage(amqp.SettlementChanged, userID, res.Instance.Series.String(), []string{id}))
	}
	return out, nil
}

func (s *LedgerService) Instance(ctx context.Context, userID, id string) (core.Instance, error) {
	return s.engine.Instance(ctx, userID, id)
}

func (s *LedgerService) Series(ctx context.Context, userID, seriesID string) ([]core.Instance, error) {
	return s.engine.Series(ctx, userID, seriesID)
}

func (s *LedgerService) Eligible(ctx context.Context, userID, seriesID string) ([]core.Instance, error) {
	return s.engine.Eligible(ctx, userID, seriesID)
}

func (s *LedgerService) History(ctx context.Context, userID, seriesID string) ([]core.AnticipationRecord, error) {
	return s.engine.History(ctx, userID, seriesID)
}

func (s *LedgerService) Summary(ctx context.Context, userID string, p core.Period) (core.PeriodSummary, error) {
	return s.engine.Summary(ctx, userID, p)
}

// ResolveReference looks a reference up by name, serving repeated lookups
// from the cache.
func (s *LedgerService) ResolveReference(ctx context.Context, userID string, kind core.ReferenceKind, name string) (core.Reference, error) {
	if s.refs != nil {
		if ref, ok := s.refs.Get(userID, kind, name); ok {
			return ref, nil
		}
	}
	ref, err := s.engine.ResolveReference(ctx, userID, kind, name)
	if err != nil {
		return core.Reference{}, err
	}
	if s.refs != nil {
		s.refs.Put(ref)
	}
	return ref, nil
}

// EnsureReference returns the named reference, creating it when missing.
func (s *LedgerService) EnsureReference(ctx context.Context, userID string, kind core.ReferenceKind, name string) (core.Reference, error) {
	ref, err := s.engine.EnsureReference(ctx, userID, kind, name)
	if err != nil {
		return core.Reference{}, s.fail(ctx, log.OpResolve, err, log.NewFields().WithSeries(userID, ""))
	}
	if s.refs != nil {
		s.refs.Put(ref)
	}
	return ref, nil
}

// Close releases the publisher when it holds resources.
func (s *LedgerService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *LedgerService) fail(ctx context.Context, op string, err error, fields log.LogFields) error {
	e := core.AsError(err)
	if e.Kind == core.KindStorage {
		s.ops.LogError(ctx, "Ledger operation failed", err, op, fields)
	} else {
		s.ops.LogRejected(ctx, op, string(e.Kind), err, fields)
	}
	return e
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEventMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, msg); err != nil {
		level := s.logger.ErrorContext
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = s.logger.WarnContext
		}
		level(ctx, "Failed to publish ledger event",
			log.FieldEventType, msg.Type,
			log.FieldSeriesID, msg.SeriesID,
			log.FieldError, err)
	}
}

func ids(items []core.Instance) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func seriesOf(items []core.Instance) string {
	for _, it := range items {
		if id, ok := it.Series.ID(); ok {
			return id
		}
	}
	return ""
}

func plural(n int) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}

func createdMessage(c core.Condition, n int) string {
	switch c {
	case core.Installment:
		return fmt.Sprintf("Installment plan created with %d installments", n)
	case core.Recurring:
		return fmt.Sprintf("Recurring entry created for %d months", n)
	default:
		return "Entry created"
	}
}
