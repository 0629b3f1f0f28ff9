package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository is the durable ledger.Store. Every write transaction is
// opened with BEGIN IMMEDIATE on a single connection, so writers are
// serialized and each one reads the state committed by the previous one.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	return r.run(ctx, true, fn)
}

func (r *SQLiteRepository) View(ctx context.Context, fn func(ledger.Tx) error) error {
	return r.run(ctx, false, fn)
}

func (r *SQLiteRepository) run(ctx context.Context, writable bool, fn func(ledger.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Storage("begin transaction", err)
	}
	if err := fn(&tx{tx: sqlTx, writable: writable}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if !writable {
		return sqlTx.Rollback()
	}
	if err := sqlTx.Commit(); err != nil {
		return core.Storage("commit transaction", err)
	}
	return nil
}

var errReadOnly = errors.New("storage: write in read-only transaction")

type tx struct {
	tx       *sql.Tx
	writable bool
}

const instanceColumns = `id, user_id, name, amount_cents, type, condition, payment_method,
	purchase_date, due_date, period, series_id, installment_count, current_installment,
	recurrence_count, settled, transfer_id, category_id, payer_id, account_id, card_id,
	note, anticipation_id, created_at, updated_at`

const instanceOrder = ` ORDER BY current_installment, period, purchase_date, id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (core.Instance, error) {
	var (
		inst                                                             core.Instance
		typ, cond, method, purchase, period, created, updated            string
		due, series, transfer, category, payer, account, card, anticipID sql.NullString
		settled                                                          int64
	)
	err := row.Scan(&inst.ID, &inst.UserID, &inst.Name, &inst.Amount.Cents, &typ, &cond, &method,
		&purchase, &due, &period, &series, &inst.InstallmentCount, &inst.CurrentInstallment,
		&inst.RecurrenceCount, &settled, &transfer, &category, &payer, &account, &card,
		&inst.Note, &anticipID, &created, &updated)
	if err != nil {
		return core.Instance{}, err
	}
	inst.Type = core.TransactionType(typ)
	inst.Condition = core.Condition(cond)
	inst.PaymentMethod = core.PaymentMethod(method)
	if inst.PurchaseDate, err = core.ParseDate(purchase); err != nil {
		return core.Instance{}, fmt.Errorf("parse purchase date %q: %w", purchase, err)
	}
	if due.Valid && due.String != "" {
		if inst.DueDate, err = core.ParseDate(due.String); err != nil {
			return core.Instance{}, fmt.Errorf("parse due date %q: %w", due.String, err)
		}
	}
	if inst.Period, err = core.ParsePeriod(period); err != nil {
		return core.Instance{}, err
	}
	inst.Series = core.SeriesOf(series.String)
	inst.Settled = settled != 0
	inst.TransferID = transfer.String
	inst.CategoryID = category.String
	inst.PayerID = payer.String
	inst.AccountID = account.String
	inst.CardID = card.String
	inst.AnticipationID = anticipID.String
	inst.CreatedAt, _ = time.Parse(timeLayout, created)
	inst.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return inst, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (t *tx) Instance(ctx context.Context, id string) (core.Instance, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)
	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Instance{}, core.NotFound("transaction %s not found", id)
	}
	if err != nil {
		return core.Instance{}, fmt.Errorf("get instance %s: %w", id, err)
	}
	return inst, nil
}

func (t *tx) SeriesMembers(ctx context.Context, seriesID string) ([]core.Instance, error) {
	return t.query(ctx, `SELECT `+instanceColumns+` FROM instances WHERE series_id = ?`+instanceOrder, seriesID)
}

func (t *tx) TransferLegs(ctx context.Context, transferID string) ([]core.Instance, error) {
	return t.query(ctx, `SELECT `+instanceColumns+` FROM instances WHERE transfer_id = ?`+instanceOrder, transferID)
}

func (t *tx) PeriodInstances(ctx context.Context, userID string, p core.Period) ([]core.Instance, error) {
	return t.query(ctx, `SELECT `+instanceColumns+` FROM instances WHERE user_id = ? AND period = ?`+instanceOrder,
		userID, p.String())
}

func (t *tx) query(ctx context.Context, q string, args ...any) ([]core.Instance, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	var out []core.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (t *tx) InsertInstances(ctx context.Context, items []core.Instance) error {
	if !t.writable {
		return errReadOnly
	}
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO instances (`+instanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, inst := range items {
		_, err := stmt.ExecContext(ctx, inst.ID, inst.UserID, inst.Name, inst.Amount.Cents,
			string(inst.Type), string(inst.Condition), string(inst.PaymentMethod),
			inst.PurchaseDate.String(), nullString(inst.DueDate.String()), inst.Period.String(),
			nullString(inst.Series.String()), inst.InstallmentCount, inst.CurrentInstallment,
			inst.RecurrenceCount, boolInt(inst.Settled), nullString(inst.TransferID),
			nullString(inst.CategoryID), nullString(inst.PayerID), nullString(inst.AccountID),
			nullString(inst.CardID), inst.Note, nullString(inst.AnticipationID),
			inst.CreatedAt.UTC().Format(timeLayout), inst.UpdatedAt.UTC().Format(timeLayout))
		if err != nil {
			if isUniqueViolation(err) {
				return core.Conflict("transaction %s already exists", inst.ID)
			}
			return fmt.Errorf("insert instance %s: %w", inst.ID, err)
		}
	}
	return nil
}

func (t *tx) UpdateInstance(ctx context.Context, inst core.Instance) (bool, error) {
	if !t.writable {
		return false, errReadOnly
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE instances SET
		name = ?, amount_cents = ?, due_date = ?, settled = ?, category_id = ?, payer_id = ?,
		account_id = ?, card_id = ?, note = ?, updated_at = ?
		WHERE id = ?`,
		inst.Name, inst.Amount.Cents, nullString(inst.DueDate.String()), boolInt(inst.Settled),
		nullString(inst.CategoryID), nullString(inst.PayerID), nullString(inst.AccountID),
		nullString(inst.CardID), inst.Note, inst.UpdatedAt.UTC().Format(timeLayout), inst.ID)
	if err != nil {
		return false, fmt.Errorf("update instance %s: %w", inst.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (t *tx) DeleteInstances(ctx context.Context, ids []string) (int, error) {
	if !t.writable {
		return 0, errReadOnly
	}
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `DELETE FROM instances WHERE id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)`
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete instances: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (t *tx) InsertAnticipation(ctx context.Context, rec core.AnticipationRecord) error {
	if !t.writable {
		return errReadOnly
	}
	consumed, err := json.Marshal(rec.ConsumedIDs)
	if err != nil {
		return fmt.Errorf("encode consumed ids: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO anticipations
		(id, user_id, series_id, consumed_ids, instance_id, raw_total_cents, discount_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.SeriesID, string(consumed), rec.InstanceID,
		rec.RawTotal.Cents, rec.Discount.Cents, rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert anticipation %s: %w", rec.ID, err)
	}
	return nil
}

func (t *tx) Anticipations(ctx context.Context, seriesID string) ([]core.AnticipationRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, user_id, series_id, consumed_ids, instance_id,
		raw_total_cents, discount_cents, created_at
		FROM anticipations WHERE series_id = ? ORDER BY created_at, id`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query anticipations: %w", err)
	}
	defer rows.Close()

	var out []core.AnticipationRecord
	for rows.Next() {
		var (
			rec               core.AnticipationRecord
			consumed, created string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SeriesID, &consumed, &rec.InstanceID,
			&rec.RawTotal.Cents, &rec.Discount.Cents, &created); err != nil {
			return nil, fmt.Errorf("scan anticipation: %w", err)
		}
		if err := json.Unmarshal([]byte(consumed), &rec.ConsumedIDs); err != nil {
			return nil, fmt.Errorf("decode consumed ids: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *tx) FindReference(ctx context.Context, userID string, kind core.ReferenceKind, name string) (core.Reference, error) {
	var ref core.Reference
	var k string
	err := t.tx.QueryRowContext(ctx, `SELECT id, user_id, kind, name FROM refs
		WHERE user_id = ? AND kind = ? AND name_key = ?`, userID, string(kind), core.NameKey(name)).
		Scan(&ref.ID, &ref.UserID, &k, &ref.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Reference{}, core.NotFound("%s %q not found", kind, name)
	}
	if err != nil {
		return core.Reference{}, fmt.Errorf("find reference: %w", err)
	}
	ref.Kind = core.ReferenceKind(k)
	return ref, nil
}

func (t *tx) ReferenceByID(ctx context.Context, id string) (core.Reference, error) {
	var ref core.Reference
	var k string
	err := t.tx.QueryRowContext(ctx, `SELECT id, user_id, kind, name FROM refs WHERE id = ?`, id).
		Scan(&ref.ID, &ref.UserID, &k, &ref.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Reference{}, core.NotFound("reference %s not found", id)
	}
	if err != nil {
		return core.Reference{}, fmt.Errorf("get reference: %w", err)
	}
	ref.Kind = core.ReferenceKind(k)
	return ref, nil
}

func (t *tx) InsertReference(ctx context.Context, ref core.Reference) error {
	if !t.writable {
		return errReadOnly
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO refs (id, user_id, kind, name, name_key) VALUES (?, ?, ?, ?, ?)`,
		ref.ID, ref.UserID, string(ref.Kind), ref.Name, core.NameKey(ref.Name))
	if isUniqueViolation(err) {
		return core.Conflict("%s %q already exists", ref.Kind, ref.Name)
	}
	if err != nil {
		return fmt.Errorf("insert reference: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
