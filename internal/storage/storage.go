// Package storage provides a SQLite-backed journal of sessions and
// dispatched orders. The journal is write-mostly reporting: no decision state
// is ever reloaded from it.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/polyflip/internal/models"
)

// Journal wraps a SQLite database for all persistence operations.
type Journal struct {
	db          *sql.DB
	maxSessions int
}

// SessionRecord is one journaled session row.
type SessionRecord struct {
	Slug        string
	UpTokenID   string
	DownTokenID string
	Start       int64
	End         int64
	PriceToBeat float64
	FinalPrice  float64
	Outcome     models.Outcome
	CreatedAt   time.Time
}

// Open opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/polyflip/journal.db.
func Open(dbPath string, maxSessions int) (*Journal, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "polyflip", "journal.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	j := &Journal{db: db, maxSessions: maxSessions}
	if err := j.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			slug          TEXT PRIMARY KEY,
			up_token_id   TEXT NOT NULL,
			down_token_id TEXT NOT NULL,
			start_ts      INTEGER NOT NULL,
			end_ts        INTEGER NOT NULL,
			price_to_beat REAL NOT NULL DEFAULT 0,
			final_price   REAL NOT NULL DEFAULT 0,
			outcome       TEXT NOT NULL DEFAULT 'unknown',
			created_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           TEXT PRIMARY KEY,
			session_slug TEXT NOT NULL REFERENCES sessions(slug) ON DELETE CASCADE,
			token_id     TEXT NOT NULL,
			side         TEXT NOT NULL,
			price        REAL NOT NULL,
			size         REAL NOT NULL,
			status       TEXT NOT NULL,
			detail       TEXT,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_slug)`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordSession journals the start of a session and prunes rows beyond the
// configured cap, oldest first.
func (j *Journal) RecordSession(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO sessions
			(slug, up_token_id, down_token_id, start_ts, end_ts, created_at)
		VALUES (?,?,?,?,?,?)`,
		session.Slug, session.UpTokenID, session.DownTokenID,
		session.Start, session.End, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if _, err = tx.Exec(`
		DELETE FROM sessions WHERE slug NOT IN (
			SELECT slug FROM sessions ORDER BY start_ts DESC LIMIT ?
		)`, j.maxSessions); err != nil {
		return fmt.Errorf("failed to enforce session cap: %w", err)
	}

	return tx.Commit()
}

// FinishSession records the resolution prices and outcome.
func (j *Journal) FinishSession(slug string, priceToBeat, finalPrice float64, outcome models.Outcome) error {
	res, err := j.db.Exec(`
		UPDATE sessions SET price_to_beat=?, final_price=?, outcome=? WHERE slug=?`,
		priceToBeat, finalPrice, string(outcome), slug,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session not found: %s", slug)
	}
	return nil
}

// RecordOrder journals a dispatched order.
func (j *Journal) RecordOrder(rec *models.OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
			(id, session_slug, token_id, side, price, size, status, detail, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.SessionSlug, rec.TokenID, string(rec.Side),
		rec.Price, rec.Size, rec.Status, rec.Detail, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// MarkOrderResult updates an order's status after submission resolves.
func (j *Journal) MarkOrderResult(id, status, detail string) error {
	res, err := j.db.Exec(`UPDATE orders SET status=?, detail=? WHERE id=?`, status, detail, id)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("order not found: %s", id)
	}
	return nil
}

// SessionOrders returns the journaled orders for a session, oldest first.
func (j *Journal) SessionOrders(slug string) ([]models.OrderRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, session_slug, token_id, side, price, size, status, detail, created_at
		FROM orders WHERE session_slug = ? ORDER BY created_at ASC`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.OrderRecord
	for rows.Next() {
		var rec models.OrderRecord
		var side string
		var detail sql.NullString
		var createdAtNano int64
		if err := rows.Scan(&rec.ID, &rec.SessionSlug, &rec.TokenID, &side,
			&rec.Price, &rec.Size, &rec.Status, &detail, &createdAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		rec.Side = models.Side(side)
		rec.Detail = detail.String
		rec.CreatedAt = time.Unix(0, createdAtNano)
		orders = append(orders, rec)
	}
	return orders, rows.Err()
}

// RecentSessions returns up to n most recent sessions, newest first.
func (j *Journal) RecentSessions(n int) ([]SessionRecord, error) {
	rows, err := j.db.Query(`
		SELECT slug, up_token_id, down_token_id, start_ts, end_ts,
		       price_to_beat, final_price, outcome, created_at
		FROM sessions ORDER BY start_ts DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var outcome string
		var createdAtNano int64
		if err := rows.Scan(&rec.Slug, &rec.UpTokenID, &rec.DownTokenID, &rec.Start, &rec.End,
			&rec.PriceToBeat, &rec.FinalPrice, &outcome, &createdAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec.Outcome = models.Outcome(outcome)
		rec.CreatedAt = time.Unix(0, createdAtNano)
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}
