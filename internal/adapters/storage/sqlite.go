package storage

// sqlite.go: journal de auditoría.
//
// Tablas:
//   - `decisions`: una fila por veredicto del guard (aprobado o rechazado).
//   - `snapshots`: resumen ligero de cada snapshot (sin posiciones).
//
// El ledger nunca lee de aquí: los snapshots se recalculan siempre desde el venue.
// Prune automático al arrancar: filas con más de 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id          TEXT PRIMARY KEY,
    decided_at  TEXT    NOT NULL,
    market_id   TEXT    NOT NULL,
    outcome     TEXT    NOT NULL,
    answer_id   TEXT    NOT NULL DEFAULT '',
    side        TEXT    NOT NULL,
    price       REAL    NOT NULL,
    approved    INTEGER NOT NULL,
    shares      REAL    NOT NULL DEFAULT 0,
    notional    REAL    NOT NULL DEFAULT 0,
    reason      TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS snapshots (
    id          TEXT PRIMARY KEY,
    taken_at    TEXT    NOT NULL,
    venue       TEXT    NOT NULL,
    identity    TEXT    NOT NULL DEFAULT '',
    positions   INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    total_value REAL    NOT NULL DEFAULT 0,
    cash        REAL,
    realized    REAL,
    unrealized  REAL
);

CREATE INDEX IF NOT EXISTS idx_decisions_at ON decisions(decided_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_at ON snapshots(taken_at DESC);
`

const (
	retention = 90 * 24 * time.Hour
	// ancho fijo: el orden de texto coincide con el cronológico
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Journal implementa ports.Journal usando SQLite (pure Go, sin CGo).
type Journal struct {
	db *sql.DB
}

// NewJournal abre (o crea) la base de datos en la ruta dada, aplica el
// schema y limpia filas antiguas. ":memory:" sirve para tests.
func NewJournal(dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewJournal: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewJournal: apply schema: %w", err)
	}

	j := &Journal{db: db}
	j.pruneOld(context.Background())
	return j, nil
}

// RecordDecision guarda un veredicto del guard. Reescribir el mismo id lo reemplaza.
func (j *Journal) RecordDecision(ctx context.Context, d domain.OrderDecision) error {
	approved := 0
	if d.Approved {
		approved = 1
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO decisions
			(id, decided_at, market_id, outcome, answer_id, side, price, approved, shares, notional, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.DecidedAt.UTC().Format(timeLayout),
		d.Intent.MarketID,
		d.Intent.OutcomeLabel,
		d.Intent.AnswerID,
		string(d.Intent.Side),
		d.Intent.Price,
		approved,
		d.Shares,
		d.Notional,
		d.Reason,
	)
	if err != nil {
		return fmt.Errorf("storage.RecordDecision %s: %w", d.ID, err)
	}
	return nil
}

// RecordSnapshot guarda el resumen de un snapshot.
func (j *Journal) RecordSnapshot(ctx context.Context, s domain.PortfolioSnapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots
			(id, taken_at, venue, identity, positions, skipped, total_value, cash, realized, unrealized)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.TakenAt.UTC().Format(timeLayout),
		s.Venue,
		s.Identity,
		len(s.Positions),
		len(s.Skipped),
		s.TotalValue(),
		nullable(s.CashBalance),
		nullable(s.RealizedPnl),
		nullable(s.UnrealizedPnl),
	)
	if err != nil {
		return fmt.Errorf("storage.RecordSnapshot %s: %w", s.ID, err)
	}
	return nil
}

// RecentDecisions devuelve las últimas decisiones, la más reciente primero.
func (j *Journal) RecentDecisions(ctx context.Context, limit int) ([]domain.OrderDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, decided_at, market_id, outcome, answer_id, side, price, approved, shares, notional, reason
		FROM decisions
		ORDER BY decided_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentDecisions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderDecision
	for rows.Next() {
		var (
			d         domain.OrderDecision
			decidedAt string
			side      string
			approved  int
		)
		if err := rows.Scan(
			&d.ID,
			&decidedAt,
			&d.Intent.MarketID,
			&d.Intent.OutcomeLabel,
			&d.Intent.AnswerID,
			&side,
			&d.Intent.Price,
			&approved,
			&d.Shares,
			&d.Notional,
			&d.Reason,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentDecisions: scan row: %w", err)
		}
		d.DecidedAt, _ = time.Parse(timeLayout, decidedAt)
		d.Intent.Side = domain.Side(side)
		d.Approved = approved == 1
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (j *Journal) Close() error {
	return j.db.Close()
}

// --- helpers internos ---

func nullable(v domain.OptionalFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.Value, Valid: v.Valid}
}

// pruneOld elimina filas antiguas para mantener la DB ligera.
func (j *Journal) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention).Format(timeLayout)
	j.db.ExecContext(ctx, `DELETE FROM decisions WHERE decided_at < ?`, cutoff)
	j.db.ExecContext(ctx, `DELETE FROM snapshots WHERE taken_at < ?`, cutoff)
}
