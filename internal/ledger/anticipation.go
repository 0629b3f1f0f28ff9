package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// AnticipationRequest pays off selected future installments early.
type AnticipationRequest struct {
	UserID        string
	SeriesID      string
	SelectedIDs   []string
	TargetPeriod  core.Period
	DiscountCents int64

	// Optional overrides for the consolidated entry.
	Name         string
	PurchaseDate core.Date
	CategoryID   string
	PayerID      string
	Note         string
}

// AnticipationResult is what an anticipation committed.
type AnticipationResult struct {
	Instance core.Instance
	Record   core.AnticipationRecord
	Consumed []core.Instance
}

func (r AnticipationRequest) validate() error {
	if strings.TrimSpace(r.SeriesID) == "" {
		return core.Validation("series is required")
	}
	if len(r.SelectedIDs) == 0 {
		return core.Validation("select at least one installment to anticipate")
	}
	seen := make(map[string]struct{}, len(r.SelectedIDs))
	for _, id := range r.SelectedIDs {
		if _, dup := seen[id]; dup {
			return core.Validationf("installment %s selected twice", id)
		}
		seen[id] = struct{}{}
	}
	if r.DiscountCents < 0 {
		return core.Validation("discount cannot be negative")
	}
	if !r.TargetPeriod.Valid() {
		return core.Validation("invalid target period")
	}
	return nil
}

// eligible filters members down to unsettled installments after the highest
// settled index.
func eligible(members []core.Instance) []core.Instance {
	highest := 0
	for _, m := range members {
		if m.Condition == core.Installment && m.Settled && m.CurrentInstallment > highest {
			highest = m.CurrentInstallment
		}
	}
	var out []core.Instance
	for _, m := range members {
		if m.Condition == core.Installment && !m.Settled && m.CurrentInstallment > highest {
			out = append(out, m)
		}
	}
	return out
}

// Eligible lists the installments of a series that can still be anticipated.
func (e *Engine) Eligible(ctx context.Context, userID, seriesID string) ([]core.Instance, error) {
	var out []core.Instance
	err := e.store.View(ctx, func(tx Tx) error {
		members, err := ownedSeries(ctx, tx, userID, seriesID)
		if err != nil {
			return err
		}
		out = eligible(members)
		return nil
	})
	return out, typed(err)
}

// Anticipate consolidates the selected installments into one settled entry.
// Eligibility is checked again against the rows read inside the write
// transaction, so overlapping concurrent requests cannot consume the same
// installment twice: the later one fails with a conflict.
func (e *Engine) Anticipate(ctx context.Context, req AnticipationRequest) (AnticipationResult, error) {
	if err := req.validate(); err != nil {
		return AnticipationResult{}, err
	}
	var res AnticipationResult
	_, err := ApplyBatch(ctx, e.store, func(ctx context.Context, tx Tx) (int, error) {
		members, err := ownedSeries(ctx, tx, req.UserID, req.SeriesID)
		if err != nil {
			return 0, err
		}
		if err := checkReferences(ctx, tx, req.UserID, map[core.ReferenceKind]string{
			core.RefCategory: req.CategoryID,
			core.RefPayer:    req.PayerID,
		}); err != nil {
			return 0, err
		}

		byID := make(map[string]core.Instance, len(members))
		for _, m := range members {
			byID[m.ID] = m
		}
		open := make(map[string]struct{})
		for _, m := range eligible(members) {
			open[m.ID] = struct{}{}
		}
		selected := make(map[string]struct{}, len(req.SelectedIDs))
		for _, id := range req.SelectedIDs {
			if _, ok := byID[id]; !ok {
				return 0, core.Conflict("installment %s is no longer part of the series", id)
			}
			if _, ok := open[id]; !ok {
				return 0, core.Validationf("installment %s cannot be anticipated", id)
			}
			selected[id] = struct{}{}
		}

		// Keep installment order for the record.
		var consumed []core.Instance
		var raw int64
		for _, m := range members {
			if _, ok := selected[m.ID]; ok {
				consumed = append(consumed, m)
				raw += m.Amount.Cents
			}
		}
		magnitude := raw
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if req.DiscountCents > magnitude {
			return 0, core.Validation("discount cannot exceed the anticipated total")
		}
		final := raw - req.DiscountCents
		if raw < 0 {
			final = raw + req.DiscountCents
		}

		first := consumed[0]
		now := e.now()
		recordID := e.ids.NewID()
		inst := core.Instance{
			ID:            e.ids.NewID(),
			UserID:        req.UserID,
			Name:          anticipationName(req.Name, first, len(consumed)),
			Amount:        core.Money{Cents: final},
			Type:          first.Type,
			Condition:     core.Single,
			PaymentMethod: first.PaymentMethod,
			PurchaseDate:  req.PurchaseDate,
			Period:        req.TargetPeriod,
			Settled:       true,
			CategoryID:    pick(req.CategoryID, first.CategoryID),
			PayerID:       pick(req.PayerID, first.PayerID),
			AccountID:     first.AccountID,
			CardID:        first.CardID,
			Note:          req.Note,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if inst.PurchaseDate.IsEmpty() {
			inst.PurchaseDate = req.TargetPeriod.FirstDay()
		}
		inst.AnticipationID = recordID
		if first.PaymentMethod == core.Boleto {
			inst.DueDate = inst.PurchaseDate
		}
		if err := inst.Validate(); err != nil {
			return 0, err
		}

		ids := make([]string, len(consumed))
		for i, c := range consumed {
			ids[i] = c.ID
		}
		n, err := tx.DeleteInstances(ctx, ids)
		if err != nil {
			return 0, err
		}
		if n != len(ids) {
			return 0, core.Conflict("installments of series %s changed concurrently", req.SeriesID)
		}
		if err := tx.InsertInstances(ctx, []core.Instance{inst}); err != nil {
			return 0, err
		}
		rec := core.AnticipationRecord{
			ID:          recordID,
			UserID:      req.UserID,
			SeriesID:    req.SeriesID,
			ConsumedIDs: ids,
			InstanceID:  inst.ID,
			RawTotal:    core.Money{Cents: raw},
			Discount:    core.Money{Cents: req.DiscountCents},
			CreatedAt:   now,
		}
		if err := tx.InsertAnticipation(ctx, rec); err != nil {
			return 0, err
		}
		res = AnticipationResult{Instance: inst, Record: rec, Consumed: consumed}
		return 1, nil
	})
	if err != nil {
		return AnticipationResult{}, err
	}
	return res, nil
}

// History lists the anticipations recorded for a series, oldest first. It
// keeps working after every installment has been consumed.
func (e *Engine) History(ctx context.Context, userID, seriesID string) ([]core.AnticipationRecord, error) {
	var out []core.AnticipationRecord
	err := e.store.View(ctx, func(tx Tx) error {
		recs, err := tx.Anticipations(ctx, seriesID)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if r.UserID == userID {
				out = append(out, r)
			}
		}
		if len(out) > 0 {
			return nil
		}
		_, err = ownedSeries(ctx, tx, userID, seriesID)
		return err
	})
	return out, typed(err)
}

func anticipationName(override string, first core.Instance, n int) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	name := fmt.Sprintf("%s (anticipation of %d installments)", first.Name, n)
	if n == 1 {
		name = fmt.Sprintf("%s (anticipation of installment %d/%d)", first.Name, first.CurrentInstallment, first.InstallmentCount)
	}
	if len(name) > 200 {
		name = first.Name
	}
	return name
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
