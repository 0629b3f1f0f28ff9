package core

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const (
	Expense  TransactionType = "expense"
	Income   TransactionType = "income"
	Transfer TransactionType = "transfer"
)

const (
	Single      Condition = "single"
	Installment Condition = "installment"
	Recurring   Condition = "recurring"
)

const (
	CreditCard   PaymentMethod = "credit_card"
	DebitCard    PaymentMethod = "debit_card"
	Pix          PaymentMethod = "pix"
	Cash         PaymentMethod = "cash"
	Boleto       PaymentMethod = "boleto"
	BankTransfer PaymentMethod = "bank_transfer"
)

type (
	TransactionType string
	Condition       string
	PaymentMethod   string

	// SeriesRef is the optional series identity of an instance. The zero
	// value means the instance belongs to no series.
	SeriesRef struct {
		id string
	}

	// Instance is a single ledger row ("lançamento").
	Instance struct {
		ID            string
		UserID        string
		Name          string
		Amount        Money // signed: expense < 0, income > 0
		Type          TransactionType
		Condition     Condition
		PaymentMethod PaymentMethod
		PurchaseDate  Date
		DueDate       Date // zero when absent
		Period        Period
		Series        SeriesRef

		InstallmentCount   int // Installment only
		CurrentInstallment int // Installment only, 1-based
		RecurrenceCount    int // Recurring only

		Settled        bool
		TransferID     string
		CategoryID     string
		PayerID        string
		AccountID      string
		CardID         string
		Note           string
		AnticipationID string // set on the entry produced by an anticipation

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// AnticipationRecord links consumed installments to the consolidated entry
	// that replaced them. Records are immutable once written.
	AnticipationRecord struct {
		ID          string
		UserID      string
		SeriesID    string
		ConsumedIDs []string
		InstanceID  string
		RawTotal    Money
		Discount    Money
		CreatedAt   time.Time
	}

	// Reference is a foreign entity (category, payer, account, card) owned by
	// an external collaborator and resolved by name.
	Reference struct {
		ID     string
		UserID string
		Kind   ReferenceKind
		Name   string
	}

	ReferenceKind string
)

const (
	RefCategory ReferenceKind = "category"
	RefPayer    ReferenceKind = "payer"
	RefAccount  ReferenceKind = "account"
	RefCard     ReferenceKind = "card"
)

var (
	ErrEmptyName = errors.New("empty name")
)

// NoSeries is the explicit "not part of a series" value.
var NoSeries = SeriesRef{}

// SeriesOf returns a reference to the series with the given id. An empty id
// yields NoSeries.
func SeriesOf(id string) SeriesRef {
	return SeriesRef{id: strings.TrimSpace(id)}
}

// ID returns the series id and whether one is set.
func (s SeriesRef) ID() (string, bool) {
	return s.id, s.id != ""
}

func (s SeriesRef) IsSet() bool {
	return s.id != ""
}

func (s SeriesRef) String() string {
	return s.id
}

// ParseTransactionType maps free-form input onto the closed set.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "despesa":
		return Expense, nil
	case "income", "receita":
		return Income, nil
	case "transfer", "transferência", "transferencia":
		return Transfer, nil
	}
	return "", Validationf("invalid transaction type %q", s)
}

// Sign returns -1 for expenses and +1 otherwise.
func (t TransactionType) Sign() int64 {
	if t == Expense {
		return -1
	}
	return 1
}

func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "à vista", "a vista", "":
		return Single, nil
	case "installment", "parcelado":
		return Installment, nil
	case "recurring", "recorrente":
		return Recurring, nil
	}
	return "", Validationf("invalid condition %q", s)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit_card", "credit card", "cartão de crédito", "cartao de credito":
		return CreditCard, nil
	case "debit_card", "debit card", "cartão de débito", "cartao de debito":
		return DebitCard, nil
	case "pix":
		return Pix, nil
	case "cash", "dinheiro":
		return Cash, nil
	case "boleto", "invoice":
		return Boleto, nil
	case "bank_transfer", "bank transfer", "transferência bancária", "transferencia bancaria":
		return BankTransfer, nil
	}
	return "", Validationf("invalid payment method %q", s)
}

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case CreditCard, DebitCard, Pix, Cash, Boleto, BankTransfer:
		return true
	}
	return false
}

func ParseReferenceKind(s string) (ReferenceKind, error) {
	switch k := ReferenceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case RefCategory, RefPayer, RefAccount, RefCard:
		return k, nil
	}
	return "", Validationf("invalid reference kind %q", s)
}

// NameKey folds a reference name for case-insensitive matching, including
// accented letters ("Alimentação" and "ALIMENTAÇÃO" share a key).
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// InSeries reports whether the instance belongs to the given series.
func (i Instance) InSeries(seriesID string) bool {
	id, ok := i.Series.ID()
	return ok && id == seriesID
}

// Validate checks the structural invariants of a single instance.
func (i Instance) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return Validation(ErrEmptyName.Error())
	}
	if len(i.Name) > 200 {
		return Validation("name too long (max 200 characters)")
	}
	if err := i.PurchaseDate.Validate(); err != nil {
		return Validation("invalid purchase date: " + err.Error())
	}
	if !i.Period.Valid() {
		return Validation("invalid period")
	}
	switch i.Condition {
	case Single:
		if i.Series.IsSet() {
			return Validation("single entries cannot belong to a series")
		}
	case Installment, Recurring:
		if !i.Series.IsSet() {
			return Validation("series entries require a series id")
		}
	default:
		return Validationf("invalid condition %q", i.Condition)
	}
	if i.TransferID != "" && i.Series.IsSet() {
		return Validation("transfer legs cannot belong to a series")
	}
	return nil
}
