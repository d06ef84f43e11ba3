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

const paymentRequestColumns = `id, contract_id, milestone_id, amount, currency, description, status,
		requested_at, approved_at, paid_at, rejected_at, rejection_reason, withdrawn_at,
		payment_reference, version, created_at, updated_at`

// SQLitePaymentRequestRepo implements PaymentRequestRepo using a SQLite database.
type SQLitePaymentRequestRepo struct {
	db db.DBTX
}

// NewSQLitePaymentRequestRepo creates a new SQLitePaymentRequestRepo.
func NewSQLitePaymentRequestRepo(conn db.DBTX) *SQLitePaymentRequestRepo {
	return &SQLitePaymentRequestRepo{db: conn}
}

// Create inserts p. A second active request for the same milestone trips
// the partial unique index and is reported as a conflict.
func (r *SQLitePaymentRequestRepo) Create(ctx context.Context, p *domain.PaymentRequest) error {
	if p.Version == 0 {
		p.Version = 1
	}
	query := `INSERT INTO payment_requests (` + paymentRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ContractID,
		p.MilestoneID,
		amountToString(p.Amount),
		p.Currency,
		p.Description,
		string(p.Status),
		p.RequestedAt.Format(time.RFC3339),
		nullableTimeToString(p.ApprovedAt, time.RFC3339),
		nullableTimeToString(p.PaidAt, time.RFC3339),
		nullableTimeToString(p.RejectedAt, time.RFC3339),
		p.RejectionReason,
		nullableTimeToString(p.WithdrawnAt, time.RFC3339),
		p.PaymentReference,
		p.Version,
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("milestone %s already has an active payment request: %w", p.MilestoneID, domain.ErrConflict)
		}
		return fmt.Errorf("inserting payment request: %w", err)
	}
	return nil
}

func (r *SQLitePaymentRequestRepo) GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = ?`
	p, err := scanPaymentRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment request %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (r *SQLitePaymentRequestRepo) ListByContract(ctx context.Context, contractID string) ([]*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests
		WHERE contract_id = ? ORDER BY requested_at, id`
	return r.list(ctx, query, contractID)
}

// GetActiveByMilestone returns the pending, approved or paid request on the
// milestone, or ErrNotFound when the slot is free.
func (r *SQLitePaymentRequestRepo) GetActiveByMilestone(ctx context.Context, milestoneID string) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests
		WHERE milestone_id = ? AND status IN ('pending','approved','paid')`
	p, err := scanPaymentRequest(r.db.QueryRowContext(ctx, query, milestoneID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active payment request for milestone %s: %w", milestoneID, ErrNotFound)
	}
	return p, err
}

// CountByContract counts every request ever raised on the contract,
// whatever its status.
func (r *SQLitePaymentRequestRepo) CountByContract(ctx context.Context, contractID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_requests WHERE contract_id = ?`, contractID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting payment requests: %w", err)
	}
	return n, nil
}

// ListApprovedBefore returns approved, unsettled requests approved at or
// before cutoff, oldest first. Requests on contracts that are no longer
// active are skipped.
func (r *SQLitePaymentRequestRepo) ListApprovedBefore(ctx context.Context, cutoff time.Time) ([]*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests
		WHERE status = 'approved' AND approved_at <= ?
			AND contract_id IN (SELECT id FROM contracts WHERE status = 'active')
		ORDER BY approved_at, id`
	return r.list(ctx, query, cutoff.UTC().Format(time.RFC3339))
}

func (r *SQLitePaymentRequestRepo) Update(ctx context.Context, p *domain.PaymentRequest) error {
	query := `UPDATE payment_requests SET status = ?, approved_at = ?, paid_at = ?, rejected_at = ?,
		rejection_reason = ?, withdrawn_at = ?, payment_reference = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(p.Status),
		nullableTimeToString(p.ApprovedAt, time.RFC3339),
		nullableTimeToString(p.PaidAt, time.RFC3339),
		nullableTimeToString(p.RejectedAt, time.RFC3339),
		p.RejectionReason,
		nullableTimeToString(p.WithdrawnAt, time.RFC3339),
		p.PaymentReference,
		p.UpdatedAt.Format(time.RFC3339),
		p.ID,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("updating payment request: %w", err)
	}
	if err := checkVersioned(res, "payment request", p.ID); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *SQLitePaymentRequestRepo) list(ctx context.Context, query string, args ...any) ([]*domain.PaymentRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payment requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.PaymentRequest
	for rows.Next() {
		p, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment requests: %w", err)
	}
	return requests, nil
}

func scanPaymentRequest(row rowScanner) (*domain.PaymentRequest, error) {
	var p domain.PaymentRequest
	var amountStr, statusStr, requestedStr, createdStr, updatedStr string
	var approvedStr, paidStr, rejectedStr, withdrawnStr sql.NullString

	err := row.Scan(
		&p.ID, &p.ContractID, &p.MilestoneID, &amountStr, &p.Currency, &p.Description, &statusStr,
		&requestedStr, &approvedStr, &paidStr, &rejectedStr, &p.RejectionReason, &withdrawnStr,
		&p.PaymentReference, &p.Version, &createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning payment request: %w", err)
	}

	p.Status = domain.PaymentRequestStatus(statusStr)
	if p.Amount, err = parseAmount(amountStr, "amount"); err != nil {
		return nil, err
	}
	if p.RequestedAt, err = time.Parse(time.RFC3339, requestedStr); err != nil {
		return nil, fmt.Errorf("parsing requested_at: %w", err)
	}
	if err := parseTimestamps(createdStr, updatedStr, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ApprovedAt = parseNullableTime(approvedStr, time.RFC3339)
	p.PaidAt = parseNullableTime(paidStr, time.RFC3339)
	p.RejectedAt = parseNullableTime(rejectedStr, time.RFC3339)
	p.WithdrawnAt = parseNullableTime(withdrawnStr, time.RFC3339)
	return &p, nil
}
