package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

// Repository provides PostgreSQL backed persistence for catalog products.
type Repository interface {
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Create(ctx context.Context, product Product) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const productColumns = `id, name, value, description, markup, vat_rate, is_visible, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE id = $1", productColumns)
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.IsVisible != nil {
		conditions = append(conditions, fmt.Sprintf("is_visible = $%d", argPos))
		args = append(args, *req.IsVisible)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(req.Limit, req.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argPos, argPos+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}

	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, product Product) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (name, value, description, markup, vat_rate, is_visible)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		product.Name,
		product.Value,
		textOrNil(product.Description),
		product.Markup,
		product.VATRate,
		product.IsVisible,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE products SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "value", "description", "markup", "vat_rate", "is_visible"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// pageBounds clamps paging so an unset limit never reaches the database
// as LIMIT 0. Callers that bypass the service, such as the wizard options
// loader, still get a sane page.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var value, markup, vatRate pgtype.Numeric
	var description pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&p.ID, &p.Name, &value, &description, &markup, &vatRate, &p.IsVisible, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if value.Valid {
		f, _ := value.Float64Value()
		p.Value = f.Float64
	}
	if markup.Valid {
		f, _ := markup.Float64Value()
		p.Markup = f.Float64
	}
	if vatRate.Valid {
		f, _ := vatRate.Float64Value()
		p.VATRate = f.Float64
	}
	if description.Valid {
		p.Description = &description.String
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}

	return &p, nil
}

func textOrNil(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
