package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

const expenseColumns = `id, creator_id, creator_name, description, total_amount,
	receipt_url, tax, tip, subtotal, status, created_at`

// CreateExpense persists a new expense with its participants and items.
func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.CreatedAt = e.CreatedAt.Truncate(time.Microsecond)
	if e.Status == "" {
		e.Status = models.StatusPending
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO expenses (`+expenseColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			e.ID, e.CreatorID, e.CreatorName, e.Description, e.TotalAmount,
			nullString(e.ReceiptURL), nullDecimal(e.Tax), nullDecimal(e.Tip), nullDecimal(e.Subtotal),
			string(e.Status), e.CreatedAt.UnixMicro(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		for i, p := range e.Participants {
			_, err = tx.ExecContext(ctx, s.q(
				"INSERT INTO expense_participants (expense_id, position, email, name, amount) VALUES (?, ?, ?, ?, ?)"),
				e.ID, i, p.Email, p.Name, p.Amount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		for i, item := range e.Items {
			_, err = tx.ExecContext(ctx, s.q(
				"INSERT INTO expense_items (expense_id, position, name, price) VALUES (?, ?, ?, ?)"),
				e.ID, i, item.Name, item.Price,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
		}
		return nil
	})
}

// GetExpense retrieves an expense by ID, including participants and items.
func (s *Store) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`), id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expenses := []models.Expense{*e}
	if err := s.loadDetails(ctx, expenses); err != nil {
		return nil, err
	}
	return &expenses[0], nil
}

// ListExpensesForUser returns every expense created by or involving userID, newest first.
func (s *Store) ListExpensesForUser(ctx context.Context, userID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE creator_id = ?
		    OR id IN (SELECT expense_id FROM expense_participants WHERE email = ?)
		 ORDER BY created_at DESC, id`),
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if err := s.loadDetails(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// UpdateExpenseStatus sets the status of an expense.
func (s *Store) UpdateExpenseStatus(ctx context.Context, id string, status models.Status) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE expenses SET status = ? WHERE id = ?"), string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update expense status: %w", err)
	}
	return expectOneRow(res, id)
}

// DeleteExpense removes an expense. Participants and items cascade.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Explicit deletes keep this correct when foreign keys are not enforced.
		if _, err := tx.ExecContext(ctx, s.q("DELETE FROM expense_participants WHERE expense_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete participants: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q("DELETE FROM expense_items WHERE expense_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete items: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.q("DELETE FROM expenses WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}
		return expectOneRow(res, id)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		e                  models.Expense
		status             string
		createdAt          int64
		receiptURL         sql.NullString
		tax, tip, subtotal decimal.NullDecimal
	)
	err := row.Scan(
		&e.ID, &e.CreatorID, &e.CreatorName, &e.Description, &e.TotalAmount,
		&receiptURL, &tax, &tip, &subtotal, &status, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = models.Status(status)
	e.CreatedAt = time.UnixMicro(createdAt).UTC()
	if receiptURL.Valid {
		e.ReceiptURL = &receiptURL.String
	}
	e.Tax = decimalPtr(tax)
	e.Tip = decimalPtr(tip)
	e.Subtotal = decimalPtr(subtotal)
	e.Participants = []models.Participant{}
	return &e, nil
}

// loadDetails fills participants and items of expenses in two queries.
func (s *Store) loadDetails(ctx context.Context, expenses []models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	index := make(map[string]int, len(expenses))
	args := make([]any, len(expenses))
	for i := range expenses {
		index[expenses[i].ID] = i
		args[i] = expenses[i].ID
	}
	in := placeholders(len(expenses))

	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT expense_id, email, name, amount FROM expense_participants
		 WHERE expense_id IN (`+in+`) ORDER BY expense_id, position`), args...)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	for rows.Next() {
		var expenseID string
		var p models.Participant
		if err := rows.Scan(&expenseID, &p.Email, &p.Name, &p.Amount); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		e := &expenses[index[expenseID]]
		e.Participants = append(e.Participants, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, s.q(
		`SELECT expense_id, name, price FROM expense_items
		 WHERE expense_id IN (`+in+`) ORDER BY expense_id, position`), args...)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}
	for rows.Next() {
		var expenseID string
		var item models.ReceiptItem
		if err := rows.Scan(&expenseID, &item.Name, &item.Price); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan item: %w", err)
		}
		e := &expenses[index[expenseID]]
		e.Items = append(e.Items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate items: %w", err)
	}

	return nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
