package stock

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads products, branch_stock and branches.
type PostgresStore struct {
	db Querier
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by pgx.
func NewPostgresStore(db Querier) *PostgresStore {
	if db == nil {
		panic("stock: pgx pool required")
	}
	return &PostgresStore{db: db}
}

const productStockSelect = `
	SELECT p.id, p.brand, COALESCE(p.model, ''), COALESCE(p.size_display, ''),
	       p.width, p.aspect_ratio, p.rim_diameter, p.price::float8,
	       COALESCE(b.code, ''), COALESCE(bs.quantity, 0)
	FROM products p
	LEFT JOIN branch_stock bs ON bs.product_id = p.id
	LEFT JOIN branches b ON b.id = bs.branch_id AND b.is_active = true`

func (s *PostgresStore) ProductsBySize(ctx context.Context, size TireSize) ([]Product, error) {
	rows, err := s.db.Query(ctx, productStockSelect+`
	WHERE p.width = $1 AND p.aspect_ratio = $2 AND p.rim_diameter = $3
	ORDER BY p.id`, size.Width, size.Profile, size.Diameter)
	if err != nil {
		return nil, fmt.Errorf("stock: query products by size: %w", err)
	}
	return collectProducts(rows)
}

func (s *PostgresStore) ProductsByRim(ctx context.Context, diameter int) ([]Product, error) {
	rows, err := s.db.Query(ctx, productStockSelect+`
	WHERE p.rim_diameter = $1 AND p.width IS NOT NULL AND p.aspect_ratio IS NOT NULL
	ORDER BY p.id`, diameter)
	if err != nil {
		return nil, fmt.Errorf("stock: query products by rim: %w", err)
	}
	return collectProducts(rows)
}

// collectProducts folds one row per (product, branch) into products, keeping row order.
func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()

	var (
		out   []Product
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			p        Product
			code     string
			quantity int
		)
		if err := rows.Scan(&p.ID, &p.Brand, &p.Model, &p.SizeDisplay,
			&p.Size.Width, &p.Size.Profile, &p.Size.Diameter, &p.Price,
			&code, &quantity); err != nil {
			return nil, fmt.Errorf("stock: scan product: %w", err)
		}
		i, seen := index[p.ID]
		if !seen {
			p.Stock = make(map[string]int)
			out = append(out, p)
			i = len(out) - 1
			index[p.ID] = i
		}
		if code != "" {
			out[i].Stock[code] += quantity
		}
	}
	return out, rows.Err()
}

func (s *PostgresStore) BranchesWithStock(ctx context.Context, productIDs []int64, minQuantity int) ([]BranchStock, error) {
	rows, err := s.db.Query(ctx, `
		SELECT b.id::text, b.code, b.name, SUM(bs.quantity)::int
		FROM branch_stock bs
		JOIN branches b ON b.id = bs.branch_id
		WHERE bs.product_id = ANY($1) AND bs.quantity >= $2 AND b.is_active = true
		GROUP BY b.id, b.code, b.name
		ORDER BY SUM(bs.quantity) DESC, b.name`, productIDs, minQuantity)
	if err != nil {
		return nil, fmt.Errorf("stock: query branches with stock: %w", err)
	}
	defer rows.Close()

	var out []BranchStock
	for rows.Next() {
		var b BranchStock
		if err := rows.Scan(&b.BranchID, &b.BranchCode, &b.BranchName, &b.TotalQuantity); err != nil {
			return nil, fmt.Errorf("stock: scan branch stock: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
