// Package holdings stores the current snapshot and answers the dashboard's
// queries against it.
package holdings

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/etfmonitor/internal/database"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/rs/zerolog"
)

// Repository persists the snapshot in the snapshot database. With the default
// in-memory database nothing outlives the process.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Replace swaps the stored snapshot for s in one transaction
func (r *Repository) Replace(s *domain.Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"uploads", "holdings", "prices", "performance"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		if _, err := tx.Exec(
			`INSERT INTO uploads (upload_id, uploaded_at, weights_filename, prices_filename) VALUES (?, ?, ?, ?)`,
			s.UploadID, s.UploadedAt.Unix(), "weights.csv", "prices.csv",
		); err != nil {
			return fmt.Errorf("failed to insert upload: %w", err)
		}

		holdingStmt, err := tx.Prepare(`INSERT INTO holdings (position, name, weight, latest_price) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare holdings insert: %w", err)
		}
		defer holdingStmt.Close()
		for i, row := range s.Rows {
			if _, err := holdingStmt.Exec(i, row.Name, row.Weight, row.LatestPrice); err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", row.Name, err)
			}
		}

		priceStmt, err := tx.Prepare(`INSERT INTO prices (name, date, price) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare prices insert: %w", err)
		}
		defer priceStmt.Close()
		for name, series := range s.History {
			for _, p := range series {
				if _, err := priceStmt.Exec(name, p.Date.Unix(), p.Price); err != nil {
					return fmt.Errorf("failed to insert price %s@%s: %w", name, domain.FormatDate(p.Date), err)
				}
			}
		}

		perfStmt, err := tx.Prepare(`INSERT INTO performance (date, value) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare performance insert: %w", err)
		}
		defer perfStmt.Close()
		for _, p := range s.Performance {
			if _, err := perfStmt.Exec(p.Date.Unix(), p.Value); err != nil {
				return fmt.Errorf("failed to insert performance %s: %w", domain.FormatDate(p.Date), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().
		Str("upload_id", s.UploadID).
		Int("holdings", len(s.Rows)).
		Msg("Snapshot stored")
	return nil
}

// Load reads the stored snapshot. It returns nil, nil when nothing was uploaded yet.
func (r *Repository) Load() (*domain.Snapshot, error) {
	var (
		s          domain.Snapshot
		uploadedAt int64
	)
	err := r.db.QueryRow(`SELECT upload_id, uploaded_at FROM uploads LIMIT 1`).Scan(&s.UploadID, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}
	s.UploadedAt = time.Unix(uploadedAt, 0).UTC()

	if s.Rows, err = r.loadHoldings(); err != nil {
		return nil, err
	}
	if s.History, err = r.loadPrices(); err != nil {
		return nil, err
	}
	if s.Performance, err = r.loadPerformance(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) loadHoldings() ([]domain.HoldingRow, error) {
	rows, err := r.db.Query(`SELECT name, weight, latest_price FROM holdings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var out []domain.HoldingRow
	for rows.Next() {
		var h domain.HoldingRow
		if err := rows.Scan(&h.Name, &h.Weight, &h.LatestPrice); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return out, nil
}

func (r *Repository) loadPrices() (domain.PriceHistory, error) {
	rows, err := r.db.Query(`SELECT name, date, price FROM prices ORDER BY name, date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	history := domain.PriceHistory{}
	for rows.Next() {
		var (
			name  string
			date  int64
			price float64
		)
		if err := rows.Scan(&name, &date, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		history[name] = append(history[name], domain.PricePoint{Date: time.Unix(date, 0).UTC(), Price: price})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}
	return history, nil
}

func (r *Repository) loadPerformance() (domain.PerformanceSeries, error) {
	rows, err := r.db.Query(`SELECT date, value FROM performance ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance: %w", err)
	}
	defer rows.Close()

	var out domain.PerformanceSeries
	for rows.Next() {
		var (
			date  int64
			value float64
		)
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan performance: %w", err)
		}
		out = append(out, domain.PerformancePoint{Date: time.Unix(date, 0).UTC(), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance: %w", err)
	}
	return out, nil
}
