package ledger

import (
	"context"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// SettlementResult reports the outcome of a paid-status change. Changed is
// false for no-ops and for entries whose status is managed elsewhere; Notice
// then explains why.
type SettlementResult struct {
	Instance core.Instance
	Changed  bool
	Notice   string
}

const creditCardNotice = "credit card entries are settled through the card invoice"

// SetSettled moves an instance to the requested paid status.
func (e *Engine) SetSettled(ctx context.Context, userID, id string, settled bool) (SettlementResult, error) {
	return e.settle(ctx, userID, id, func(bool) bool { return settled })
}

// Toggle flips the paid status of an instance.
func (e *Engine) Toggle(ctx context.Context, userID, id string) (SettlementResult, error) {
	return e.settle(ctx, userID, id, func(cur bool) bool { return !cur })
}

// settle reads the instance and picks the target status inside one
// transaction, so concurrent toggles each see the previous one's result.
func (e *Engine) settle(ctx context.Context, userID, id string, next func(cur bool) bool) (SettlementResult, error) {
	var res SettlementResult
	_, err := ApplyBatch(ctx, e.store, func(ctx context.Context, tx Tx) (int, error) {
		inst, err := ownedInstance(ctx, tx, userID, id)
		if err != nil {
			return 0, err
		}
		switch inst.PaymentMethod {
		case core.CreditCard:
			res = SettlementResult{Instance: inst, Notice: creditCardNotice}
			return 0, nil
		case core.Pix, core.Boleto, core.Cash, core.DebitCard:
		default:
			return 0, core.Validationf("settlement cannot be changed for %s entries", inst.PaymentMethod)
		}
		settled := next(inst.Settled)
		if inst.Settled == settled {
			res = SettlementResult{Instance: inst}
			return 0, nil
		}
		inst.Settled = settled
		inst.UpdatedAt = e.now()
		ok, err := tx.UpdateInstance(ctx, inst)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, core.Conflict("transaction %s changed concurrently", id)
		}
		res = SettlementResult{Instance: inst, Changed: true}
		return 1, nil
	})
	if err != nil {
		return SettlementResult{}, err
	}
	return res, nil
}
