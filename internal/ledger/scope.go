package ledger

import (
	"context"
	"strings"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// Scope selects which members of a series a mutation touches, relative to an
// anchor instance.
type Scope string

const (
	ScopeSingle        Scope = "single"
	ScopeThisAndFuture Scope = "this_and_future"
	ScopeAll           Scope = "all"
)

// ParseScope maps user input to a Scope. An empty value means ScopeSingle.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single", "this":
		return ScopeSingle, nil
	case "this_and_future", "this-and-future", "future":
		return ScopeThisAndFuture, nil
	case "all":
		return ScopeAll, nil
	}
	return "", core.Validationf("invalid scope %q", s)
}

// ResolveAffected returns the members touched by a scoped mutation of anchor.
// members must hold the rows that share anchor's series or transfer id; rows
// of other owners are ignored. The result keeps the members' order.
//
// Transfer legs always resolve to the whole pair so the pair never goes out
// of balance. An anchor outside any series resolves to itself.
func ResolveAffected(anchor core.Instance, members []core.Instance, scope Scope) ([]core.Instance, error) {
	switch scope {
	case ScopeSingle, ScopeThisAndFuture, ScopeAll:
	default:
		return nil, core.Validationf("invalid scope %q", scope)
	}

	if anchor.TransferID != "" {
		var legs []core.Instance
		for _, m := range members {
			if m.TransferID == anchor.TransferID && m.UserID == anchor.UserID {
				legs = append(legs, m)
			}
		}
		if len(legs) == 0 {
			legs = []core.Instance{anchor}
		}
		return legs, nil
	}

	seriesID, ok := anchor.Series.ID()
	if !ok || scope == ScopeSingle {
		return []core.Instance{anchor}, nil
	}

	var out []core.Instance
	for _, m := range members {
		if !m.InSeries(seriesID) || m.UserID != anchor.UserID {
			continue
		}
		if scope == ScopeThisAndFuture && !isSameOrLater(anchor, m) {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		out = []core.Instance{anchor}
	}
	return out, nil
}

func isSameOrLater(anchor, m core.Instance) bool {
	if anchor.Condition == core.Installment {
		return m.CurrentInstallment >= anchor.CurrentInstallment
	}
	return m.Period.Compare(anchor.Period) >= 0
}

// resolveInTx loads the anchor and its group inside tx and resolves scope.
func resolveInTx(ctx context.Context, tx Tx, userID, anchorID string, scope Scope) (core.Instance, []core.Instance, error) {
	anchor, err := ownedInstance(ctx, tx, userID, anchorID)
	if err != nil {
		return core.Instance{}, nil, err
	}
	var members []core.Instance
	switch {
	case anchor.TransferID != "":
		members, err = tx.TransferLegs(ctx, anchor.TransferID)
	case anchor.Series.IsSet():
		members, err = tx.SeriesMembers(ctx, anchor.Series.String())
	}
	if err != nil {
		return core.Instance{}, nil, err
	}
	affected, err := ResolveAffected(anchor, members, scope)
	return anchor, affected, err
}

// Affected previews the instances a scoped mutation would touch.
func (e *Engine) Affected(ctx context.Context, userID, anchorID string, scope Scope) ([]core.Instance, error) {
	var out []core.Instance
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		_, out, err = resolveInTx(ctx, tx, userID, anchorID, scope)
		return err
	})
	return out, typed(err)
}
