// Package journal persists alerts to SQLite so past signals survive restarts
// and can be served through the API.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// Journal records alerts in a SQLite database.
type Journal struct {
	db  *sql.DB
	mu  sync.Mutex
	log *slog.Logger
}

// Open opens (or creates) the journal database and runs migrations.
func Open(dbPath string, log *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	// WAL mode keeps API reads cheap while the monitor writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	j := &Journal{db: db, log: log.With("component", "journal")}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	j.log.Info("journal opened", "path", dbPath)
	return j, nil
}

func (j *Journal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			timeframe  TEXT NOT NULL,
			strategy   TEXT NOT NULL,
			direction  TEXT NOT NULL,
			price      REAL,
			win_rate   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol)`,
	}

	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

// InsertAlert records one alert. A zero CreatedAt is stamped with the
// current time.
func (j *Journal) InsertAlert(ctx context.Context, a domain.Alert) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `INSERT INTO alerts
		(created_at, symbol, timeframe, strategy, direction, price, win_rate)
		VALUES (?,?,?,?,?,?,?)`,
		createdAt.Unix(), a.Symbol, string(a.Timeframe), a.Strategy,
		string(a.Direction), a.Price, a.WinRate,
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (j *Journal) RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT created_at, symbol, timeframe, strategy, direction, price, win_rate
		FROM alerts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var createdAt int64
		var tf, dir string
		if err := rows.Scan(&createdAt, &a.Symbol, &tf, &a.Strategy, &dir, &a.Price, &a.WinRate); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		a.Timeframe = domain.Timeframe(tf)
		a.Direction = domain.Direction(dir)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
