package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS contracts (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL DEFAULT '',
		client_id     TEXT NOT NULL,
		freelancer_id TEXT NOT NULL,
		proposal_id   TEXT NOT NULL DEFAULT '',
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		total_amount  TEXT NOT NULL,
		currency      TEXT NOT NULL,
		start_date    TEXT NOT NULL,
		end_date      TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending'
		              CHECK(status IN ('pending','active','completed','cancelled')),
		accepted_at   TEXT,
		completed_at  TEXT,
		cancelled_at  TEXT,
		version       INTEGER NOT NULL DEFAULT 1,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		CHECK(client_id <> freelancer_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_freelancer ON contracts(freelancer_id)`,

	`CREATE TABLE IF NOT EXISTS milestones (
		id             TEXT PRIMARY KEY,
		contract_id    TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		title          TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		amount         TEXT NOT NULL,
		due_date       TEXT,
		order_index    INTEGER NOT NULL DEFAULT 0 CHECK(order_index >= 0),
		status         TEXT NOT NULL DEFAULT 'pending'
		               CHECK(status IN ('pending','in_progress','completed','paid')),
		completed_date TEXT,
		paid_date      TEXT,
		version        INTEGER NOT NULL DEFAULT 1,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		UNIQUE(contract_id, order_index)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_milestones_contract ON milestones(contract_id)`,

	`CREATE TABLE IF NOT EXISTS payment_requests (
		id                TEXT PRIMARY KEY,
		contract_id       TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		milestone_id      TEXT NOT NULL REFERENCES milestones(id) ON DELETE RESTRICT,
		amount            TEXT NOT NULL,
		currency          TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL DEFAULT 'pending'
		                  CHECK(status IN ('pending','approved','rejected','withdrawn','paid')),
		requested_at      TEXT NOT NULL,
		approved_at       TEXT,
		paid_at           TEXT,
		rejected_at       TEXT,
		rejection_reason  TEXT NOT NULL DEFAULT '',
		withdrawn_at      TEXT,
		payment_reference TEXT NOT NULL DEFAULT '',
		version           INTEGER NOT NULL DEFAULT 1,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_payment_requests_contract ON payment_requests(contract_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_requests_status ON payment_requests(status, approved_at)`,

	// At most one active request per milestone.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_requests_active_milestone
		ON payment_requests(milestone_id)
		WHERE status IN ('pending','approved','paid')`,
}
