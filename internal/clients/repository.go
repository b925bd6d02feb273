package clients

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

// Repository provides PostgreSQL backed persistence for clients.
type Repository interface {
	Get(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, int, error)
	Create(ctx context.Context, client Client) (int64, error)
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

const clientColumns = `id, name, company, email, telephone, address1, address2,
       city, county, postcode, is_visible, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Client, error) {
	query := fmt.Sprintf("SELECT %s FROM clients WHERE id = $1", clientColumns)
	c, err := scanClient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
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

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM clients %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(req.Limit, req.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM clients
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, clientColumns, whereClause, argPos, argPos+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *c)
	}

	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, client Client) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (name, company, email, telephone, address1, address2,
		                     city, county, postcode, is_visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		client.Name,
		textOrNil(client.Company),
		textOrNil(client.Email),
		textOrNil(client.Telephone),
		textOrNil(client.Address1),
		textOrNil(client.Address2),
		textOrNil(client.City),
		textOrNil(client.County),
		textOrNil(client.Postcode),
		client.IsVisible,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE clients SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "company", "email", "telephone", "address1", "address2", "city", "county", "postcode", "is_visible"} {
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

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var company, email, telephone, addr1, addr2, city, county, postcode pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&c.ID, &c.Name, &company, &email, &telephone, &addr1, &addr2,
		&city, &county, &postcode, &c.IsVisible, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if company.Valid {
		c.Company = &company.String
	}
	if email.Valid {
		c.Email = &email.String
	}
	if telephone.Valid {
		c.Telephone = &telephone.String
	}
	if addr1.Valid {
		c.Address1 = &addr1.String
	}
	if addr2.Valid {
		c.Address2 = &addr2.String
	}
	if city.Valid {
		c.City = &city.String
	}
	if county.Valid {
		c.County = &county.String
	}
	if postcode.Valid {
		c.Postcode = &postcode.String
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}

	return &c, nil
}

func textOrNil(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
