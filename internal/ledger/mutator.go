package ledger

import (
	"context"
	"strings"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// FieldChanges lists the fields a scoped edit sets. Nil fields are left
// untouched; a pointer to the zero value clears an optional field.
type FieldChanges struct {
	Name        *string
	AmountCents *int64 // magnitude; each instance keeps its own sign
	CategoryID  *string
	PayerID     *string
	AccountID   *string
	CardID      *string
	Note        *string
	DueDate     *core.Date // rolled forward by each member's offset from the anchor
}

func (c FieldChanges) IsEmpty() bool {
	return c.Name == nil && c.AmountCents == nil && c.CategoryID == nil && c.PayerID == nil &&
		c.AccountID == nil && c.CardID == nil && c.Note == nil && c.DueDate == nil
}

func (c FieldChanges) validate() error {
	if c.IsEmpty() {
		return core.Validation("no changes given")
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return core.Validation("name is required")
	}
	if c.AmountCents != nil && *c.AmountCents <= 0 {
		return core.Validation("amount must be greater than zero")
	}
	return nil
}

func (c FieldChanges) references() map[core.ReferenceKind]string {
	refs := map[core.ReferenceKind]string{}
	set := func(k core.ReferenceKind, v *string) {
		if v != nil {
			refs[k] = *v
		}
	}
	set(core.RefCategory, c.CategoryID)
	set(core.RefPayer, c.PayerID)
	set(core.RefAccount, c.AccountID)
	set(core.RefCard, c.CardID)
	return refs
}

// apply returns inst with the changes applied. offset is the number of months
// between the anchor and inst.
func (c FieldChanges) apply(inst core.Instance, offset int) core.Instance {
	if c.Name != nil {
		inst.Name = strings.TrimSpace(*c.Name)
	}
	if c.AmountCents != nil {
		sign := inst.Type.Sign()
		if inst.Type == core.Transfer && inst.Amount.Cents < 0 {
			sign = -1
		}
		inst.Amount = core.Money{Cents: sign * *c.AmountCents}
	}
	if c.CategoryID != nil {
		inst.CategoryID = *c.CategoryID
	}
	if c.PayerID != nil {
		inst.PayerID = *c.PayerID
	}
	if c.AccountID != nil && inst.TransferID == "" {
		inst.AccountID = *c.AccountID
	}
	if c.CardID != nil {
		inst.CardID = *c.CardID
	}
	if c.Note != nil {
		inst.Note = *c.Note
	}
	if c.DueDate != nil {
		inst.DueDate = c.DueDate.AddMonths(offset)
	}
	return inst
}

// Edit applies changes to every instance the scope resolves to, in one
// transaction. It returns the updated instances; their count is the number
// of rows the store actually changed at commit time.
func (e *Engine) Edit(ctx context.Context, userID, anchorID string, scope Scope, changes FieldChanges) ([]core.Instance, error) {
	if err := changes.validate(); err != nil {
		return nil, err
	}
	var updated []core.Instance
	_, err := ApplyBatch(ctx, e.store, func(ctx context.Context, tx Tx) (int, error) {
		updated = nil
		anchor, affected, err := resolveInTx(ctx, tx, userID, anchorID, scope)
		if err != nil {
			return 0, err
		}
		if err := checkReferences(ctx, tx, userID, changes.references()); err != nil {
			return 0, err
		}
		now := e.now()
		for _, inst := range affected {
			if changes.AmountCents != nil && inst.AnticipationID != "" {
				return 0, core.Validation("the amount of an anticipation entry cannot be edited")
			}
			next := changes.apply(inst, anchor.Period.MonthsBetween(inst.Period))
			if next.PaymentMethod == core.Boleto && next.DueDate.IsEmpty() {
				return 0, core.Validation("boleto entries require a due date")
			}
			if next.PaymentMethod == core.DebitCard && next.AccountID == "" {
				return 0, core.Validation("debit card entries require an account")
			}
			if err := next.Validate(); err != nil {
				return 0, err
			}
			next.UpdatedAt = now
			ok, err := tx.UpdateInstance(ctx, next)
			if err != nil {
				return 0, err
			}
			if ok {
				updated = append(updated, next)
			}
		}
		return len(updated), nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes every instance the scope resolves to, in one transaction.
// A series whose last member is removed ceases to exist.
func (e *Engine) Delete(ctx context.Context, userID, anchorID string, scope Scope) ([]core.Instance, error) {
	var deleted []core.Instance
	_, err := ApplyBatch(ctx, e.store, func(ctx context.Context, tx Tx) (int, error) {
		_, affected, err := resolveInTx(ctx, tx, userID, anchorID, scope)
		if err != nil {
			return 0, err
		}
		ids := make([]string, 0, len(affected))
		for _, inst := range affected {
			if inst.AnticipationID != "" {
				return 0, core.Validation("anticipation entries cannot be deleted")
			}
			ids = append(ids, inst.ID)
		}
		n, err := tx.DeleteInstances(ctx, ids)
		if err != nil {
			return 0, err
		}
		if n != len(ids) {
			return 0, core.Conflict("%d of %d entries changed concurrently", len(ids)-n, len(ids))
		}
		deleted = affected
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
