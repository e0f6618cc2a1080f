package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/db"
	"distance-request-service/internal/platform/obs"

	"github.com/shopspring/decimal"
)

const upsertTransaction = `
	INSERT INTO transactions (
		transaction_id,
		report_id,
		amount,
		currency,
		merchant,
		comment,
		waypoints,
		route,
		created
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (transaction_id) DO UPDATE
	SET report_id = EXCLUDED.report_id,
		amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		merchant = EXCLUDED.merchant,
		comment = EXCLUDED.comment,
		waypoints = EXCLUDED.waypoints,
		route = EXCLUDED.route;
	`

// SQLTransactionRepository is the durable home of confirmed transactions.
// Loading and error state is transient and lives only in the reactive store.
type SQLTransactionRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLTransactionRepository(conn *sql.DB, dialect db.Dialect) *SQLTransactionRepository {
	return &SQLTransactionRepository{DB: conn, Dialect: dialect}
}

func transactionArgs(t *domain.Transaction) ([]any, error) {
	waypoints, err := json.Marshal(t.Waypoints())
	if err != nil {
		return nil, fmt.Errorf("encode waypoints of %q: %w", t.TransactionID, err)
	}

	var route sql.NullString
	if t.Route != nil {
		b, err := json.Marshal(t.Route)
		if err != nil {
			return nil, fmt.Errorf("encode route of %q: %w", t.TransactionID, err)
		}
		route = sql.NullString{String: string(b), Valid: true}
	}

	created := t.Created
	if created.IsZero() {
		created = time.Now()
	}

	return []any{
		t.TransactionID,
		t.ReportID,
		t.Amount.String(),
		t.Currency,
		t.Merchant,
		t.Comment.Comment,
		string(waypoints),
		route,
		created.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (r *SQLTransactionRepository) SaveTransaction(ctx context.Context, t *domain.Transaction) (err error) {
	defer obs.Time(ctx, "repo.SaveTransaction")(&err)

	if r.DB == nil {
		return errors.New("sql transaction repository: DB is nil")
	}

	args, err := transactionArgs(t)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	if _, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(upsertTransaction), args...); err != nil {
		return fmt.Errorf("save transaction %q: %w", t.TransactionID, err)
	}
	return nil
}

func (r *SQLTransactionRepository) LoadTransaction(ctx context.Context, transactionID string) (_ *domain.Transaction, err error) {
	defer obs.Time(ctx, "repo.LoadTransaction")(&err)

	if r.DB == nil {
		return nil, errors.New("sql transaction repository: DB is nil")
	}

	query := `
	SELECT
		report_id,
		amount,
		currency,
		merchant,
		comment,
		waypoints,
		route,
		created
	FROM transactions
	WHERE transaction_id = ?;
	`

	var (
		t                 = domain.Transaction{TransactionID: transactionID}
		amount, waypoints string
		created           string
		route             sql.NullString
	)
	err = r.DB.QueryRowContext(ctx, r.Dialect.Rebind(query), transactionID).Scan(
		&t.ReportID, &amount, &t.Currency, &t.Merchant, &t.Comment.Comment, &waypoints, &route, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load transaction %q: %w", transactionID, domain.ErrTransactionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %q: scan row: %w", transactionID, err)
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("load transaction %q: parse amount: %w", transactionID, err)
	}
	if err := json.Unmarshal([]byte(waypoints), &t.Comment.Waypoints); err != nil {
		return nil, fmt.Errorf("load transaction %q: decode waypoints: %w", transactionID, err)
	}
	if route.Valid {
		t.Route = &domain.Route{}
		if err := json.Unmarshal([]byte(route.String), t.Route); err != nil {
			return nil, fmt.Errorf("load transaction %q: decode route: %w", transactionID, err)
		}
	}
	if t.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("load transaction %q: parse created: %w", transactionID, err)
	}

	return &t, nil
}
