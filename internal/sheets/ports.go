package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// Header is the first row of the mirror sheet. Column A holds the instance
// id and is the key used to find a row again.
var Header = []string{
	"ID", "User", "Period", "Purchase date", "Due date", "Name", "Type", "Condition",
	"Payment method", "Installment", "Amount", "Paid", "Series", "Category", "Note",
}

// ErrMissingID is returned for rows whose id column is blank.
var ErrMissingID = errors.New("row without id")

// Row is the spreadsheet projection of one ledger instance.
type Row struct {
	ID            string
	UserID        string
	Period        string
	PurchaseDate  string
	DueDate       string
	Name          string
	Type          string
	Condition     string
	PaymentMethod string
	Installment   string // "2/5" for installments, empty otherwise
	Amount        string // signed, two decimals
	Settled       bool
	SeriesID      string
	CategoryID    string
	Note          string
}

// Ports for outbound adapters.
type (
	RowWriter interface {
		// UpsertRows writes rows, replacing any row with the same id.
		UpsertRows(ctx context.Context, rows []Row) error
	}

	RowDeleter interface {
		// DeleteRows removes the rows with the given ids and returns how many
		// were present.
		DeleteRows(ctx context.Context, ids []string) (int, error)
	}

	RowLister interface {
		ListRows(ctx context.Context) ([]Row, error)
	}

	// Mirror is the full set of operations the mirror worker needs.
	Mirror interface {
		RowWriter
		RowDeleter
		RowLister
	}
)

// FromInstance builds the row for an instance.
func FromInstance(i core.Instance) Row {
	r := Row{
		ID:            i.ID,
		UserID:        i.UserID,
		Period:        i.Period.String(),
		PurchaseDate:  i.PurchaseDate.String(),
		DueDate:       i.DueDate.String(),
		Name:          i.Name,
		Type:          string(i.Type),
		Condition:     string(i.Condition),
		PaymentMethod: string(i.PaymentMethod),
		Amount:        i.Amount.String(),
		Settled:       i.Settled,
		SeriesID:      i.Series.String(),
		CategoryID:    i.CategoryID,
		Note:          i.Note,
	}
	if i.Condition == core.Installment && i.InstallmentCount > 0 {
		r.Installment = fmt.Sprintf("%d/%d", i.CurrentInstallment, i.InstallmentCount)
	}
	return r
}

// Values renders the row in Header column order.
func (r Row) Values() []any {
	paid := "no"
	if r.Settled {
		paid = "yes"
	}
	return []any{
		r.ID, r.UserID, r.Period, r.PurchaseDate, r.DueDate, r.Name, r.Type, r.Condition,
		r.PaymentMethod, r.Installment, r.Amount, paid, r.SeriesID, r.CategoryID, r.Note,
	}
}

// ParseRow is the inverse of Values. Short rows are padded; a row without an
// id is rejected.
func ParseRow(values []any) (Row, error) {
	cols := make([]string, len(Header))
	for i := range cols {
		if i < len(values) {
			cols[i] = strings.TrimSpace(fmt.Sprint(values[i]))
		}
	}
	if cols[0] == "" {
		return Row{}, ErrMissingID
	}
	settled, err := parsePaid(cols[11])
	if err != nil {
		return Row{}, fmt.Errorf("row %s: %w", cols[0], err)
	}
	return Row{
		ID:            cols[0],
		UserID:        cols[1],
		Period:        cols[2],
		PurchaseDate:  cols[3],
		DueDate:       cols[4],
		Name:          cols[5],
		Type:          cols[6],
		Condition:     cols[7],
		PaymentMethod: cols[8],
		Installment:   cols[9],
		Amount:        cols[10],
		Settled:       settled,
		SeriesID:      cols[12],
		CategoryID:    cols[13],
		Note:          cols[14],
	}, nil
}

func parsePaid(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "sim":
		return true, nil
	case "no", "não", "nao", "":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid paid value %q", s)
	}
	return b, nil
}
