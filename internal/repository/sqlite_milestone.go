package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/db"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

const milestoneColumns = `id, contract_id, title, description, amount, due_date, order_index, status,
		completed_date, paid_date, version, created_at, updated_at`

// SQLiteMilestoneRepo implements MilestoneRepo using a SQLite database.
type SQLiteMilestoneRepo struct {
	db db.DBTX
}

// NewSQLiteMilestoneRepo creates a new SQLiteMilestoneRepo.
func NewSQLiteMilestoneRepo(conn db.DBTX) *SQLiteMilestoneRepo {
	return &SQLiteMilestoneRepo{db: conn}
}

// Create inserts m. A clashing order index within the contract is a conflict.
func (r *SQLiteMilestoneRepo) Create(ctx context.Context, m *domain.Milestone) error {
	if m.Version == 0 {
		m.Version = 1
	}
	query := `INSERT INTO milestones (` + milestoneColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.ContractID,
		m.Title,
		m.Description,
		amountToString(m.Amount),
		nullableTimeToString(m.DueDate, dateLayout),
		m.OrderIndex,
		string(m.Status),
		nullableTimeToString(m.CompletedDate, time.RFC3339),
		nullableTimeToString(m.PaidDate, time.RFC3339),
		m.Version,
		m.CreatedAt.Format(time.RFC3339),
		m.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("milestone order index %d already used on contract %s: %w",
				m.OrderIndex, m.ContractID, domain.ErrConflict)
		}
		return fmt.Errorf("inserting milestone: %w", err)
	}
	return nil
}

func (r *SQLiteMilestoneRepo) GetByID(ctx context.Context, id string) (*domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = ?`
	m, err := scanMilestone(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("milestone %s: %w", id, ErrNotFound)
	}
	return m, err
}

// ListByContract returns the contract's milestones in order index order.
func (r *SQLiteMilestoneRepo) ListByContract(ctx context.Context, contractID string) ([]*domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE contract_id = ? ORDER BY order_index`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("listing milestones: %w", err)
	}
	defer rows.Close()

	var milestones []*domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating milestones: %w", err)
	}
	return milestones, nil
}

// NextOrderIndex returns one past the highest order index on the contract.
func (r *SQLiteMilestoneRepo) NextOrderIndex(ctx context.Context, contractID string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index) + 1, 0) FROM milestones WHERE contract_id = ?`, contractID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("computing next order index: %w", err)
	}
	return next, nil
}

func (r *SQLiteMilestoneRepo) Update(ctx context.Context, m *domain.Milestone) error {
	query := `UPDATE milestones SET title = ?, description = ?, amount = ?, due_date = ?, order_index = ?,
		status = ?, completed_date = ?, paid_date = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		m.Title,
		m.Description,
		amountToString(m.Amount),
		nullableTimeToString(m.DueDate, dateLayout),
		m.OrderIndex,
		string(m.Status),
		nullableTimeToString(m.CompletedDate, time.RFC3339),
		nullableTimeToString(m.PaidDate, time.RFC3339),
		m.UpdatedAt.Format(time.RFC3339),
		m.ID,
		m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("milestone order index %d already used on contract %s: %w",
				m.OrderIndex, m.ContractID, domain.ErrConflict)
		}
		return fmt.Errorf("updating milestone: %w", err)
	}
	if err := checkVersioned(res, "milestone", m.ID); err != nil {
		return err
	}
	m.Version++
	return nil
}

// Delete removes m if its stored version still matches.
func (r *SQLiteMilestoneRepo) Delete(ctx context.Context, m *domain.Milestone) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = ? AND version = ?`, m.ID, m.Version)
	if err != nil {
		return fmt.Errorf("deleting milestone: %w", err)
	}
	return checkVersioned(res, "milestone", m.ID)
}

func scanMilestone(row rowScanner) (*domain.Milestone, error) {
	var m domain.Milestone
	var amountStr, statusStr, createdStr, updatedStr string
	var dueStr, completedStr, paidStr sql.NullString

	err := row.Scan(
		&m.ID, &m.ContractID, &m.Title, &m.Description, &amountStr, &dueStr, &m.OrderIndex, &statusStr,
		&completedStr, &paidStr, &m.Version, &createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning milestone: %w", err)
	}

	m.Status = domain.MilestoneStatus(statusStr)
	if m.Amount, err = parseAmount(amountStr, "amount"); err != nil {
		return nil, err
	}
	if err := parseTimestamps(createdStr, updatedStr, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.DueDate = parseNullableTime(dueStr, dateLayout)
	m.CompletedDate = parseNullableTime(completedStr, time.RFC3339)
	m.PaidDate = parseNullableTime(paidStr, time.RFC3339)
	return &m, nil
}
