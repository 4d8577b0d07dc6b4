package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
)

// ProductRepo reads and seeds the credit_products table. It serves as a
// table source for the in-memory profile store.
type ProductRepo struct {
	db *sqlx.DB
}

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// EnsureTable creates credit_products if missing.
func (r *ProductRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS credit_products (
  id BIGSERIAL PRIMARY KEY,
  customer_id TEXT NOT NULL,
  product_type TEXT NOT NULL,
  account_number TEXT NOT NULL,
  opening_date DATE,
  last_payment_date DATE,
  opening_balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (opening_balance >= 0),
  credit_limit NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (credit_limit >= 0),
  monthly_instalment NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (monthly_instalment >= 0),
  loan_term INT NOT NULL DEFAULT 12 CHECK (loan_term BETWEEN 1 AND 600),
  current_balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (current_balance >= 0),
  current_status TEXT NOT NULL,
  balance_overdue NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance_overdue >= 0),
  subscriber_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credit_products_customer ON credit_products(customer_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// HasSubscriberColumn reports whether credit_products carries subscriber_id.
func (r *ProductRepo) HasSubscriberColumn(ctx context.Context) (bool, error) {
	const q = `SELECT EXISTS (
  SELECT 1 FROM information_schema.columns
  WHERE table_name = 'credit_products' AND column_name = 'subscriber_id'
)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q); err != nil {
		return false, err
	}
	return ok, nil
}

const selectColumns = `customer_id, product_type, account_number, opening_date, last_payment_date,
  opening_balance, credit_limit, monthly_instalment, loan_term, current_balance,
  current_status, balance_overdue`

// Load reads every row in insertion order. When the table has no
// subscriber_id column the result is marked unpartitioned and row-level
// filtering will pass it through untouched.
func (r *ProductRepo) Load(ctx context.Context) (entity.Table, error) {
	partitioned, err := r.HasSubscriberColumn(ctx)
	if err != nil {
		return entity.Table{}, fmt.Errorf("inspect credit_products: %w", err)
	}
	q := `SELECT ` + selectColumns + `, subscriber_id FROM credit_products ORDER BY id`
	if !partitioned {
		q = `SELECT ` + selectColumns + `, '' AS subscriber_id FROM credit_products ORDER BY id`
	}
	var rows []entity.CreditProduct
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return entity.Table{}, fmt.Errorf("select credit_products: %w", err)
	}
	return entity.Table{Rows: rows, HasSubscriberColumn: partitioned}, nil
}

// Replace overwrites the table contents with rows in one transaction.
func (r *ProductRepo) Replace(ctx context.Context, rows []entity.CreditProduct) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credit_products`); err != nil {
		return fmt.Errorf("clear credit_products: %w", err)
	}
	const ins = `INSERT INTO credit_products (customer_id, product_type, account_number, opening_date, last_payment_date,
  opening_balance, credit_limit, monthly_instalment, loan_term, current_balance, current_status, balance_overdue, subscriber_id)
VALUES (:customer_id, :product_type, :account_number, :opening_date, :last_payment_date,
  :opening_balance, :credit_limit, :monthly_instalment, :loan_term, :current_balance, :current_status, :balance_overdue, :subscriber_id)`
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, ins, row); err != nil {
			return fmt.Errorf("insert %s: %w", row.AccountNumber, err)
		}
	}
	return tx.Commit()
}
