package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
)

const defaultTolerance = 0.005

// TotalsDrift is one header whose stored totals no longer match the sum
// of its lines.
type TotalsDrift struct {
	Table      string
	ID         int64
	Header     float64
	LineSum    float64
	HeaderVAT  float64
	LineVATSum float64
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// IntegrityChecker recomputes line sums for every quote and invoice
// header and reports any that drifted. Drift should never happen while
// all writes go through the service layer; this catches manual edits
// and historical rows.
type IntegrityChecker struct {
	db     querier
	logger *slog.Logger
}

// NewIntegrityChecker constructs an IntegrityChecker.
func NewIntegrityChecker(db querier, logger *slog.Logger) *IntegrityChecker {
	return &IntegrityChecker{db: db, logger: logger}
}

// HandleTask processes TaskTotalsIntegrity tasks.
func (c *IntegrityChecker) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload TotalsIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Tolerance <= 0 {
		payload.Tolerance = defaultTolerance
	}

	drifts, err := c.Run(ctx, payload.Tolerance)
	if err != nil {
		return err
	}
	for _, d := range drifts {
		c.logger.Warn("document totals drift",
			slog.String("table", d.Table),
			slog.Int64("id", d.ID),
			slog.Float64("header_total", d.Header),
			slog.Float64("line_sum", d.LineSum),
			slog.Float64("header_vat", d.HeaderVAT),
			slog.Float64("line_vat_sum", d.LineVATSum),
		)
	}
	c.logger.Info("totals integrity check finished", slog.Int("drifts", len(drifts)))
	return nil
}

// Run scans both document tables and returns every drifted header.
func (c *IntegrityChecker) Run(ctx context.Context, tolerance float64) ([]TotalsDrift, error) {
	var out []TotalsDrift
	for _, pair := range []struct {
		header, lines, fk string
	}{
		{"quotes", "quote_items", "quote_id"},
		{"invoices", "invoice_items", "invoice_id"},
	} {
		drifts, err := c.scan(ctx, pair.header, pair.lines, pair.fk, tolerance)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pair.header, err)
		}
		out = append(out, drifts...)
	}
	return out, nil
}

func (c *IntegrityChecker) scan(ctx context.Context, header, lines, fk string, tolerance float64) ([]TotalsDrift, error) {
	query := fmt.Sprintf(`
		SELECT h.id, h.total_value, h.total_vat,
		       COALESCE(SUM(l.total_value), 0) AS line_sum,
		       COALESCE(SUM(l.total_vat), 0) AS line_vat_sum
		FROM %s h
		LEFT JOIN %s l ON l.%s = h.id
		GROUP BY h.id, h.total_value, h.total_vat
		HAVING ABS(h.total_value - COALESCE(SUM(l.total_value), 0)) > $1
		    OR ABS(h.total_vat - COALESCE(SUM(l.total_vat), 0)) > $1
		ORDER BY h.id`, header, lines, fk)

	rows, err := c.db.Query(ctx, query, tolerance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TotalsDrift
	for rows.Next() {
		d := TotalsDrift{Table: header}
		if err := rows.Scan(&d.ID, &d.Header, &d.HeaderVAT, &d.LineSum, &d.LineVATSum); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
