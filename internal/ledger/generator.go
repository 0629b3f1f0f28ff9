package ledger

import (
	"context"
	"strings"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// CreateRequest describes one logical transaction entered by the user.
type CreateRequest struct {
	UserID        string
	Name          string
	AmountCents   int64 // magnitude; the sign follows Type
	Type          core.TransactionType
	Condition     core.Condition
	PaymentMethod core.PaymentMethod
	PurchaseDate  core.Date
	DueDate       core.Date
	// Period of the first entry; zero means the purchase date's month.
	Period core.Period

	InstallmentCount int // Installment: total number of installments (>= 2)
	RecurrenceCount  int // Recurring: number of repetitions (0 means 1)

	CategoryID string
	PayerID    string
	AccountID  string
	CardID     string
	Note       string
}

// TransferRequest moves an amount between two accounts of the same user.
type TransferRequest struct {
	UserID        string
	Name          string
	AmountCents   int64
	FromAccountID string
	ToAccountID   string
	Date          core.Date
	Note          string
}

// defaultSettled is the canonical paid-status rule for generated entries:
// credit card entries follow the invoice cycle, every other method marks
// only the first entry as settled.
func defaultSettled(method core.PaymentMethod, index int) bool {
	if method == core.CreditCard {
		return false
	}
	return index == 0
}

// maxSeriesLength caps installment and recurrence counts.
const maxSeriesLength = core.MaxSplitParts

func (r CreateRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return core.Validation("user is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return core.Validation("name is required")
	}
	if r.AmountCents <= 0 {
		return core.Validation("amount must be greater than zero")
	}
	switch r.Type {
	case core.Expense, core.Income:
	case core.Transfer:
		return core.Validation("transfers must be created as a transfer pair")
	default:
		return core.Validationf("invalid transaction type %q", r.Type)
	}
	if !r.PaymentMethod.Valid() || r.PaymentMethod == core.BankTransfer {
		return core.Validationf("invalid payment method %q", r.PaymentMethod)
	}
	if err := r.PurchaseDate.Validate(); err != nil {
		return core.Validation("invalid purchase date: " + err.Error())
	}
	if !r.Period.IsZero() && !r.Period.Valid() {
		return core.Validationf("invalid period %s", r.Period)
	}
	switch r.Condition {
	case core.Single:
	case core.Installment:
		if r.InstallmentCount < 2 {
			return core.Validation("installment count must be at least 2")
		}
		if r.InstallmentCount > maxSeriesLength {
			return core.Validationf("installment count must be at most %d", maxSeriesLength)
		}
	case core.Recurring:
		if r.RecurrenceCount < 0 {
			return core.Validation("recurrence count cannot be negative")
		}
		if r.RecurrenceCount > maxSeriesLength {
			return core.Validationf("recurrence count must be at most %d", maxSeriesLength)
		}
	default:
		return core.Validationf("invalid condition %q", r.Condition)
	}
	switch r.PaymentMethod {
	case core.DebitCard:
		if strings.TrimSpace(r.AccountID) == "" {
			return core.Validation("debit card entries require an account")
		}
	case core.Boleto:
		if r.DueDate.IsEmpty() {
			return core.Validation("boleto entries require a due date")
		}
	}
	return nil
}

// Plan expands a request into the instances it would create without touching
// the store. Every check runs before the first instance is built.
func (e *Engine) Plan(req CreateRequest) ([]core.Instance, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	count := 1
	amounts := []int64{req.AmountCents}
	series := core.NoSeries
	switch req.Condition {
	case core.Installment:
		count = req.InstallmentCount
		parts, err := core.SplitCents(req.AmountCents, count)
		if err != nil {
			return nil, core.Validation(err.Error())
		}
		amounts = parts
		series = core.SeriesOf(e.ids.NewID())
	case core.Recurring:
		count = max(req.RecurrenceCount, 1)
		series = core.SeriesOf(e.ids.NewID())
	}

	now := e.now()
	start := req.PurchaseDate.Period()
	if !req.Period.IsZero() {
		start = req.Period
	}
	out := make([]core.Instance, 0, count)
	for i := 0; i < count; i++ {
		amount := amounts[0]
		if req.Condition == core.Installment {
			amount = amounts[i]
		}
		inst := core.Instance{
			ID:            e.ids.NewID(),
			UserID:        req.UserID,
			Name:          strings.TrimSpace(req.Name),
			Amount:        core.Signed(req.Type, amount),
			Type:          req.Type,
			Condition:     req.Condition,
			PaymentMethod: req.PaymentMethod,
			PurchaseDate:  req.PurchaseDate.AddMonths(i),
			DueDate:       req.DueDate.AddMonths(i),
			Period:        start.AddMonths(i),
			Series:        series,
			Settled:       defaultSettled(req.PaymentMethod, i),
			CategoryID:    req.CategoryID,
			PayerID:       req.PayerID,
			AccountID:     req.AccountID,
			CardID:        req.CardID,
			Note:          req.Note,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		switch req.Condition {
		case core.Installment:
			inst.InstallmentCount = count
			inst.CurrentInstallment = i + 1
		case core.Recurring:
			inst.RecurrenceCount = req.RecurrenceCount
		}
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Generate plans and commits a new single entry or series.
func (e *Engine) Generate(ctx context.Context, req CreateRequest) ([]core.Instance, error) {
	items, err := e.Plan(req)
	if err != nil {
		return nil, err
	}
	refs := map[core.ReferenceKind]string{
		core.RefCategory: req.CategoryID,
		core.RefPayer:    req.PayerID,
		core.RefAccount:  req.AccountID,
		core.RefCard:     req.CardID,
	}
	_, err = ApplyBatch(ctx, e.store,
		func(ctx context.Context, tx Tx) (int, error) {
			return 0, checkReferences(ctx, tx, req.UserID, refs)
		},
		insertOp(items),
	)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GenerateTransfer creates the two legs of an internal transfer. The legs
// share a transfer id and sum to zero.
func (e *Engine) GenerateTransfer(ctx context.Context, req TransferRequest) ([]core.Instance, error) {
	switch {
	case strings.TrimSpace(req.UserID) == "":
		return nil, core.Validation("user is required")
	case strings.TrimSpace(req.Name) == "":
		return nil, core.Validation("name is required")
	case req.AmountCents <= 0:
		return nil, core.Validation("amount must be greater than zero")
	case req.FromAccountID == "" || req.ToAccountID == "":
		return nil, core.Validation("transfers require both accounts")
	case req.FromAccountID == req.ToAccountID:
		return nil, core.Validation("transfer accounts must differ")
	}
	if err := req.Date.Validate(); err != nil {
		return nil, core.Validation("invalid transfer date: " + err.Error())
	}

	now := e.now()
	transferID := e.ids.NewID()
	leg := func(account string, sign int64) core.Instance {
		return core.Instance{
			ID:            e.ids.NewID(),
			UserID:        req.UserID,
			Name:          strings.TrimSpace(req.Name),
			Amount:        core.Money{Cents: sign * req.AmountCents},
			Type:          core.Transfer,
			Condition:     core.Single,
			PaymentMethod: core.BankTransfer,
			PurchaseDate:  req.Date,
			Period:        req.Date.Period(),
			Settled:       true,
			TransferID:    transferID,
			AccountID:     account,
			Note:          req.Note,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	legs := []core.Instance{leg(req.FromAccountID, -1), leg(req.ToAccountID, 1)}
	for _, l := range legs {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}

	_, err := ApplyBatch(ctx, e.store,
		func(ctx context.Context, tx Tx) (int, error) {
			if err := checkReferences(ctx, tx, req.UserID, map[core.ReferenceKind]string{core.RefAccount: req.FromAccountID}); err != nil {
				return 0, err
			}
			return 0, checkReferences(ctx, tx, req.UserID, map[core.ReferenceKind]string{core.RefAccount: req.ToAccountID})
		},
		insertOp(legs),
	)
	if err != nil {
		return nil, err
	}
	return legs, nil
}

func insertOp(items []core.Instance) Operation {
	return func(ctx context.Context, tx Tx) (int, error) {
		if err := tx.InsertInstances(ctx, items); err != nil {
			return 0, err
		}
		return len(items), nil
	}
}
