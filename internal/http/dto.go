package http

import (
	"time"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/services"
)

type createTransactionRequest struct {
	Name             string `json:"name"`
	Amount           string `json:"amount"`
	Type             string `json:"type"`
	Condition        string `json:"condition"`
	PaymentMethod    string `json:"payment_method"`
	PurchaseDate     string `json:"purchase_date"`
	DueDate          string `json:"due_date"`
	Period           string `json:"period"` // YYYY-MM; defaults to the purchase month
	InstallmentCount int    `json:"installment_count"`
	RecurrenceCount  int    `json:"recurrence_count"`
	CategoryID       string `json:"category_id"`
	Category         string `json:"category"` // resolved by name when category_id is empty
	PayerID          string `json:"payer_id"`
	AccountID        string `json:"account_id"`
	CardID           string `json:"card_id"`
	Note             string `json:"note"`
}

type transferRequest struct {
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Date          string `json:"date"`
	Note          string `json:"note"`
}

type editRequest struct {
	Name       *string `json:"name"`
	Amount     *string `json:"amount"`
	CategoryID *string `json:"category_id"`
	PayerID    *string `json:"payer_id"`
	AccountID  *string `json:"account_id"`
	CardID     *string `json:"card_id"`
	Note       *string `json:"note"`
	DueDate    *string `json:"due_date"`
}

type settlementRequest struct {
	// Settled sets the paid status; omitted means toggle.
	Settled *bool `json:"settled"`
}

type anticipationRequest struct {
	InstallmentIDs []string `json:"installment_ids"`
	TargetPeriod   string   `json:"target_period"`
	Discount       string   `json:"discount"`
	Name           string   `json:"name"`
	PurchaseDate   string   `json:"purchase_date"`
	CategoryID     string   `json:"category_id"`
	PayerID        string   `json:"payer_id"`
	Note           string   `json:"note"`
}

type referenceRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type instanceJSON struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Amount             string    `json:"amount"`
	AmountCents        int64     `json:"amount_cents"`
	Type               string    `json:"type"`
	Condition          string    `json:"condition"`
	PaymentMethod      string    `json:"payment_method"`
	PurchaseDate       string    `json:"purchase_date"`
	DueDate            string    `json:"due_date,omitempty"`
	Period             string    `json:"period"`
	SeriesID           string    `json:"series_id,omitempty"`
	InstallmentCount   int       `json:"installment_count,omitempty"`
	CurrentInstallment int       `json:"current_installment,omitempty"`
	RecurrenceCount    int       `json:"recurrence_count,omitempty"`
	Settled            bool      `json:"settled"`
	TransferID         string    `json:"transfer_id,omitempty"`
	CategoryID         string    `json:"category_id,omitempty"`
	PayerID            string    `json:"payer_id,omitempty"`
	AccountID          string    `json:"account_id,omitempty"`
	CardID             string    `json:"card_id,omitempty"`
	Note               string    `json:"note,omitempty"`
	AnticipationID     string    `json:"anticipation_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toInstanceJSON(i core.Instance) instanceJSON {
	return instanceJSON{
		ID:                 i.ID,
		UserID:             i.UserID,
		Name:               i.Name,
		Amount:             i.Amount.String(),
		AmountCents:        i.Amount.Cents,
		Type:               string(i.Type),
		Condition:          string(i.Condition),
		PaymentMethod:      string(i.PaymentMethod),
		PurchaseDate:       i.PurchaseDate.String(),
		DueDate:            i.DueDate.String(),
		Period:             i.Period.String(),
		SeriesID:           i.Series.String(),
		InstallmentCount:   i.InstallmentCount,
		CurrentInstallment: i.CurrentInstallment,
		RecurrenceCount:    i.RecurrenceCount,
		Settled:            i.Settled,
		TransferID:         i.TransferID,
		CategoryID:         i.CategoryID,
		PayerID:            i.PayerID,
		AccountID:          i.AccountID,
		CardID:             i.CardID,
		Note:               i.Note,
		AnticipationID:     i.AnticipationID,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func toInstancesJSON(items []core.Instance) []instanceJSON {
	out := make([]instanceJSON, len(items))
	for i, it := range items {
		out[i] = toInstanceJSON(it)
	}
	return out
}

type outcomeJSON struct {
	Message   string         `json:"message"`
	Count     int            `json:"count"`
	Instances []instanceJSON `json:"instances"`
}

func toOutcomeJSON(o services.Outcome) outcomeJSON {
	return outcomeJSON{Message: o.Message, Count: o.Count, Instances: toInstancesJSON(o.Instances)}
}

type anticipationJSON struct {
	ID          string    `json:"id"`
	SeriesID    string    `json:"series_id"`
	InstanceID  string    `json:"instance_id"`
	ConsumedIDs []string  `json:"consumed_ids"`
	RawTotal    string    `json:"raw_total"`
	Discount    string    `json:"discount"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAnticipationJSON(r core.AnticipationRecord) anticipationJSON {
	return anticipationJSON{
		ID:          r.ID,
		SeriesID:    r.SeriesID,
		InstanceID:  r.InstanceID,
		ConsumedIDs: r.ConsumedIDs,
		RawTotal:    r.RawTotal.String(),
		Discount:    r.Discount.String(),
		CreatedAt:   r.CreatedAt,
	}
}

type anticipationOutcomeJSON struct {
	outcomeJSON
	Record anticipationJSON `json:"record"`
}

type categoryAmountJSON struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
}

type summaryJSON struct {
	Period     string               `json:"period"`
	Income     string               `json:"income"`
	Expense    string               `json:"expense"`
	Net        string               `json:"net"`
	Settled    string               `json:"settled"`
	Pending    string               `json:"pending"`
	Entries    int                  `json:"entries"`
	ByCategory []categoryAmountJSON `json:"by_category"`
}

func toSummaryJSON(s core.PeriodSummary) summaryJSON {
	out := summaryJSON{
		Period:     s.Period.String(),
		Income:     s.Income.String(),
		Expense:    s.Expense.String(),
		Net:        s.Net.String(),
		Settled:    s.Settled.String(),
		Pending:    s.Pending.String(),
		Entries:    s.Entries,
		ByCategory: make([]categoryAmountJSON, len(s.ByCategory)),
	}
	for i, c := range s.ByCategory {
		out.ByCategory[i] = categoryAmountJSON{CategoryID: c.CategoryID, Amount: c.Amount.String()}
	}
	return out
}

type referenceJSON struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}
