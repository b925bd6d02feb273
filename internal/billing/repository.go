package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxvolts/maxvolts/internal/platform/db"
)

var ErrNotFound = errors.New("billing: not found")

// Repository is the persistence surface for quotes and invoices. Header
// and line writes are separate operations so callers decide the
// transaction boundary: WithTx for atomic edits, direct calls when the
// caller manages compensation itself.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	CreateQuote(ctx context.Context, q Quote) (int64, error)
	GetQuote(ctx context.Context, id int64) (*Quote, error)
	ListQuotes(ctx context.Context, req ListRequest) ([]QuoteSummary, int, error)
	UpdateQuoteHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	InsertQuoteLine(ctx context.Context, quoteID int64, line Line) (int64, error)
	DeleteQuoteLines(ctx context.Context, quoteID int64) error

	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListRequest) ([]InvoiceSummary, int, error)
	UpdateInvoiceHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	InsertInvoiceLine(ctx context.Context, invoiceID int64, line Line) (int64, error)
	DeleteInvoiceLines(ctx context.Context, invoiceID int64) error
	DeleteInvoice(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quoteColumns = `id, client_id, status, notes, total_value, total_vat, created_by, created_by_email, created_at, updated_at`

func (r *repository) CreateQuote(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotes (client_id, status, notes, total_value, total_vat, created_by, created_by_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		q.ClientID, string(q.Status), q.Notes, q.TotalValue, q.TotalVAT, q.CreatedBy, q.CreatedByEmail,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert quote: %w", err)
	}
	return id, nil
}

func (r *repository) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)

	var q Quote
	var notes pgtype.Text
	var totalValue, totalVAT pgtype.Numeric
	err := row.Scan(&q.ID, &q.ClientID, &q.Status, &notes, &totalValue, &totalVAT,
		&q.CreatedBy, &q.CreatedByEmail, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if notes.Valid {
		q.Notes = &notes.String
	}
	q.TotalValue = numericToFloat(totalValue)
	q.TotalVAT = numericToFloat(totalVAT)

	q.Lines, err = r.listLines(ctx, "quote_items", "quote_id", id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) ListQuotes(ctx context.Context, req ListRequest) ([]QuoteSummary, int, error) {
	where, args := listFilter(req)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quotes q`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotes: %w", err)
	}

	limit, offset := pageBounds(req)
	query := `
		SELECT q.id, q.client_id, q.status, q.notes, q.total_value, q.total_vat,
		       q.created_by, q.created_by_email, q.created_at, q.updated_at, c.name
		FROM quotes q
		JOIN clients c ON c.id = q.client_id` + where + `
		ORDER BY q.id DESC
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var out []QuoteSummary
	for rows.Next() {
		var s QuoteSummary
		var notes pgtype.Text
		var totalValue, totalVAT pgtype.Numeric
		if err := rows.Scan(&s.ID, &s.ClientID, &s.Status, &notes, &totalValue, &totalVAT,
			&s.CreatedBy, &s.CreatedByEmail, &s.CreatedAt, &s.UpdatedAt, &s.ClientName); err != nil {
			return nil, 0, fmt.Errorf("scan quote: %w", err)
		}
		if notes.Valid {
			s.Notes = &notes.String
		}
		s.TotalValue = numericToFloat(totalValue)
		s.TotalVAT = numericToFloat(totalVAT)
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) UpdateQuoteHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.updateHeader(ctx, "quotes", id, updates)
}

func (r *repository) InsertQuoteLine(ctx context.Context, quoteID int64, line Line) (int64, error) {
	return r.insertLine(ctx, "quote_items", "quote_id", quoteID, line)
}

func (r *repository) DeleteQuoteLines(ctx context.Context, quoteID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quoteID); err != nil {
		return fmt.Errorf("delete quote lines: %w", err)
	}
	return nil
}

const invoiceColumns = `id, client_id, quote_id, status, notes, total_value, total_vat, created_by, created_by_email, created_at, updated_at`

func (r *repository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (client_id, quote_id, status, notes, total_value, total_vat, created_by, created_by_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		inv.ClientID, inv.QuoteID, string(inv.Status), inv.Notes, inv.TotalValue, inv.TotalVAT,
		inv.CreatedBy, inv.CreatedByEmail,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	return id, nil
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)

	var inv Invoice
	var quoteID pgtype.Int8
	var notes pgtype.Text
	var totalValue, totalVAT pgtype.Numeric
	err := row.Scan(&inv.ID, &inv.ClientID, &quoteID, &inv.Status, &notes, &totalValue, &totalVAT,
		&inv.CreatedBy, &inv.CreatedByEmail, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if quoteID.Valid {
		inv.QuoteID = &quoteID.Int64
	}
	if notes.Valid {
		inv.Notes = &notes.String
	}
	inv.TotalValue = numericToFloat(totalValue)
	inv.TotalVAT = numericToFloat(totalVAT)

	inv.Lines, err = r.listLines(ctx, "invoice_items", "invoice_id", id)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) ListInvoices(ctx context.Context, req ListRequest) ([]InvoiceSummary, int, error) {
	where, args := listFilter(req)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices q`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	limit, offset := pageBounds(req)
	query := `
		SELECT q.id, q.client_id, q.quote_id, q.status, q.notes, q.total_value, q.total_vat,
		       q.created_by, q.created_by_email, q.created_at, q.updated_at, c.name
		FROM invoices q
		JOIN clients c ON c.id = q.client_id` + where + `
		ORDER BY q.id DESC
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []InvoiceSummary
	for rows.Next() {
		var s InvoiceSummary
		var quoteID pgtype.Int8
		var notes pgtype.Text
		var totalValue, totalVAT pgtype.Numeric
		if err := rows.Scan(&s.ID, &s.ClientID, &quoteID, &s.Status, &notes, &totalValue, &totalVAT,
			&s.CreatedBy, &s.CreatedByEmail, &s.CreatedAt, &s.UpdatedAt, &s.ClientName); err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		if quoteID.Valid {
			s.QuoteID = &quoteID.Int64
		}
		if notes.Valid {
			s.Notes = &notes.String
		}
		s.TotalValue = numericToFloat(totalValue)
		s.TotalVAT = numericToFloat(totalVAT)
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) UpdateInvoiceHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.updateHeader(ctx, "invoices", id, updates)
}

func (r *repository) InsertInvoiceLine(ctx context.Context, invoiceID int64, line Line) (int64, error) {
	return r.insertLine(ctx, "invoice_items", "invoice_id", invoiceID, line)
}

func (r *repository) DeleteInvoiceLines(ctx context.Context, invoiceID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice lines: %w", err)
	}
	return nil
}

// DeleteInvoice removes the header and any lines already written under
// it. It backs out a half-written conversion, so it must succeed even
// when only some lines exist.
func (r *repository) DeleteInvoice(ctx context.Context, id int64) error {
	if err := r.DeleteInvoiceLines(ctx, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) listLines(ctx context.Context, table, fk string, headerID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, name, value, markup, vat_rate, quantity, description, total_value, total_vat, line_order
		FROM `+table+` WHERE `+fk+` = $1 ORDER BY line_order`, headerID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		var desc pgtype.Text
		var value, markup, vatRate, qty, totalValue, totalVAT pgtype.Numeric
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Name, &value, &markup, &vatRate, &qty,
			&desc, &totalValue, &totalVAT, &l.LineOrder); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		if desc.Valid {
			l.Description = &desc.String
		}
		l.Value = numericToFloat(value)
		l.Markup = numericToFloat(markup)
		l.VATRate = numericToFloat(vatRate)
		l.Quantity = numericToFloat(qty)
		l.TotalValue = numericToFloat(totalValue)
		l.TotalVAT = numericToFloat(totalVAT)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) insertLine(ctx context.Context, table, fk string, headerID int64, line Line) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO `+table+` (`+fk+`, product_id, name, value, markup, vat_rate, quantity, description, total_value, total_vat, line_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		headerID, line.ProductID, line.Name, line.Value, line.Markup, line.VATRate,
		line.Quantity, line.Description, line.TotalValue, line.TotalVAT, line.LineOrder,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert line: %w", err)
	}
	return id, nil
}

func (r *repository) updateHeader(ctx context.Context, table string, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	setClauses := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+1)
	i := 1
	for _, col := range []string{"client_id", "status", "notes", "total_value", "total_vat"} {
		v, ok := updates[col]
		if !ok {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, v)
		i++
	}
	if len(setClauses) == 0 {
		return nil
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(setClauses, ", "), i)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func listFilter(req ListRequest) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if req.Status != "" {
		args = append(args, req.Status)
		clauses = append(clauses, fmt.Sprintf("q.status = $%d", len(args)))
	}
	if req.ClientID > 0 {
		args = append(args, req.ClientID)
		clauses = append(clauses, fmt.Sprintf("q.client_id = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func pageBounds(req ListRequest) (int, int) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func numericToFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, err := n.Float64Value()
	if err != nil {
		return 0
	}
	return f.Float64
}
