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

const contractColumns = `id, project_id, client_id, freelancer_id, proposal_id, title, description,
		total_amount, currency, start_date, end_date, status,
		accepted_at, completed_at, cancelled_at, version, created_at, updated_at`

// SQLiteContractRepo implements ContractRepo using a SQLite database.
type SQLiteContractRepo struct {
	db db.DBTX
}

// NewSQLiteContractRepo creates a new SQLiteContractRepo.
func NewSQLiteContractRepo(conn db.DBTX) *SQLiteContractRepo {
	return &SQLiteContractRepo{db: conn}
}

func (r *SQLiteContractRepo) Create(ctx context.Context, c *domain.Contract) error {
	if c.Version == 0 {
		c.Version = 1
	}
	query := `INSERT INTO contracts (` + contractColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.ProjectID,
		c.ClientID,
		c.FreelancerID,
		c.ProposalID,
		c.Title,
		c.Description,
		amountToString(c.TotalAmount),
		c.Currency,
		c.StartDate.Format(dateLayout),
		c.EndDate.Format(dateLayout),
		string(c.Status),
		nullableTimeToString(c.AcceptedAt, time.RFC3339),
		nullableTimeToString(c.CompletedAt, time.RFC3339),
		nullableTimeToString(c.CancelledAt, time.RFC3339),
		c.Version,
		c.CreatedAt.Format(time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting contract %s: %w", c.ID, domain.ErrConflict)
		}
		return fmt.Errorf("inserting contract: %w", err)
	}
	return nil
}

func (r *SQLiteContractRepo) GetByID(ctx context.Context, id string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = ?`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	return c, err
}

// ListByParty returns the contracts where userID is the client or the freelancer.
func (r *SQLiteContractRepo) ListByParty(ctx context.Context, userID string) ([]*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE client_id = ? OR freelancer_id = ?
		ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contracts: %w", err)
	}
	return contracts, nil
}

func (r *SQLiteContractRepo) Update(ctx context.Context, c *domain.Contract) error {
	query := `UPDATE contracts SET title = ?, description = ?, total_amount = ?, currency = ?,
		start_date = ?, end_date = ?, status = ?, accepted_at = ?, completed_at = ?, cancelled_at = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		c.Title,
		c.Description,
		amountToString(c.TotalAmount),
		c.Currency,
		c.StartDate.Format(dateLayout),
		c.EndDate.Format(dateLayout),
		string(c.Status),
		nullableTimeToString(c.AcceptedAt, time.RFC3339),
		nullableTimeToString(c.CompletedAt, time.RFC3339),
		nullableTimeToString(c.CancelledAt, time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
		c.ID,
		c.Version,
	)
	if err != nil {
		return fmt.Errorf("updating contract: %w", err)
	}
	if err := checkVersioned(res, "contract", c.ID); err != nil {
		return err
	}
	c.Version++
	return nil
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	var c domain.Contract
	var totalStr, startStr, endStr, statusStr, createdStr, updatedStr string
	var acceptedStr, completedStr, cancelledStr sql.NullString

	err := row.Scan(
		&c.ID, &c.ProjectID, &c.ClientID, &c.FreelancerID, &c.ProposalID, &c.Title, &c.Description,
		&totalStr, &c.Currency, &startStr, &endStr, &statusStr,
		&acceptedStr, &completedStr, &cancelledStr, &c.Version, &createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning contract: %w", err)
	}

	c.Status = domain.ContractStatus(statusStr)
	if c.TotalAmount, err = parseAmount(totalStr, "total_amount"); err != nil {
		return nil, err
	}
	if c.StartDate, err = time.Parse(dateLayout, startStr); err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}
	if c.EndDate, err = time.Parse(dateLayout, endStr); err != nil {
		return nil, fmt.Errorf("parsing end_date: %w", err)
	}
	if err := parseTimestamps(createdStr, updatedStr, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.AcceptedAt = parseNullableTime(acceptedStr, time.RFC3339)
	c.CompletedAt = parseNullableTime(completedStr, time.RFC3339)
	c.CancelledAt = parseNullableTime(cancelledStr, time.RFC3339)
	return &c, nil
}
