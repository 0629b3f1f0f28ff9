package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    ledger.Scope
		wantErr bool
	}{
		{in: "", want: ledger.ScopeSingle},
		{in: "single", want: ledger.ScopeSingle},
		{in: " This ", want: ledger.ScopeSingle},
		{in: "this_and_future", want: ledger.ScopeThisAndFuture},
		{in: "THIS-AND-FUTURE", want: ledger.ScopeThisAndFuture},
		{in: "future", want: ledger.ScopeThisAndFuture},
		{in: "All", want: ledger.ScopeAll},
		{in: "previous", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ledger.ParseScope(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, core.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func member(id string, series string, cond core.Condition, index int, period core.Period) core.Instance {
	return core.Instance{
		ID:                 id,
		UserID:             user,
		Condition:          cond,
		Series:             core.SeriesOf(series),
		CurrentInstallment: index,
		Period:             period,
	}
}

func ids(items []core.Instance) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestResolveAffected(t *testing.T) {
	var installments []core.Instance
	for i := 1; i <= 4; i++ {
		installments = append(installments, member(
			"i"+string(rune('0'+i)), "s1", core.Installment, i, core.NewPeriod(2024, time.Month(i))))
	}
	foreign := member("x1", "s1", core.Installment, 4, core.NewPeriod(2024, time.April))
	foreign.UserID = "someone-else"
	members := append(append([]core.Instance(nil), installments...), foreign)

	var recurring []core.Instance
	for i, p := range []core.Period{core.NewPeriod(2024, time.March), core.NewPeriod(2024, time.January), core.NewPeriod(2024, time.February)} {
		recurring = append(recurring, member("r"+string(rune('1'+i)), "s2", core.Recurring, 0, p))
	}

	legA := core.Instance{ID: "t1", UserID: user, TransferID: "tr"}
	legB := core.Instance{ID: "t2", UserID: user, TransferID: "tr"}
	single := core.Instance{ID: "solo", UserID: user, Condition: core.Single}

	tests := []struct {
		name    string
		anchor  core.Instance
		members []core.Instance
		scope   ledger.Scope
		want    []string
	}{
		{name: "single scope", anchor: installments[1], members: members, scope: ledger.ScopeSingle, want: []string{"i2"}},
		{name: "this and future by index", anchor: installments[1], members: members, scope: ledger.ScopeThisAndFuture, want: []string{"i2", "i3", "i4"}},
		{name: "all skips other owners", anchor: installments[2], members: members, scope: ledger.ScopeAll, want: []string{"i1", "i2", "i3", "i4"}},
		{name: "recurring future by period", anchor: recurring[2], members: recurring, scope: ledger.ScopeThisAndFuture, want: []string{"r1", "r3"}},
		{name: "transfer leg resolves to pair", anchor: legA, members: []core.Instance{legA, legB}, scope: ledger.ScopeSingle, want: []string{"t1", "t2"}},
		{name: "no series resolves to itself", anchor: single, members: nil, scope: ledger.ScopeAll, want: []string{"solo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.ResolveAffected(tt.anchor, tt.members, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := ledger.ResolveAffected(single, nil, ledger.Scope("sideways"))
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestAffectedPreviewDoesNotMutate(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()

	items, err := e.Generate(ctx, installmentRequest(50000, 5, core.Pix))
	require.NoError(t, err)

	affected, err := e.Affected(ctx, user, items[2].ID, ledger.ScopeThisAndFuture)
	require.NoError(t, err)
	assert.Equal(t, ids(items[2:]), ids(affected))
	assert.Equal(t, 5, store.Len())

	_, err = e.Affected(ctx, "intruder", items[2].ID, ledger.ScopeAll)
	require.ErrorIs(t, err, core.ErrNotFound)

	_, err = e.Affected(ctx, user, "missing", ledger.ScopeSingle)
	require.ErrorIs(t, err, core.ErrNotFound)
}
