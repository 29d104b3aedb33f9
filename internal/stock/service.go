package stock

import (
	"context"
	"fmt"
	"sort"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var stockTracer = otel.Tracer("neumaticos.stock")

// DefaultMinPairQuantity is the smallest per-branch quantity worth offering.
const DefaultMinPairQuantity = 2

// Product is a catalog row with its stock per branch code.
type Product struct {
	ID          int64
	Brand       string
	Model       string
	SizeDisplay string
	Size        TireSize
	Price       float64
	Stock       map[string]int
}

// TotalStock sums the stock of every branch.
func (p Product) TotalStock() int {
	total := 0
	for _, q := range p.Stock {
		total += q
	}
	return total
}

// ProductWithStock is a product annotated with the stock relevant to one query.
type ProductWithStock struct {
	ProductID   int64
	Brand       string
	Model       string
	SizeDisplay string
	Price       float64
	TotalStock  int
	BranchStock int
	// BranchCode is set when the branch holds a stock row for the product.
	BranchCode string
}

// BranchStock is the quantity of a set of products held by one branch.
type BranchStock struct {
	BranchID      string
	BranchCode    string
	BranchName    string
	TotalQuantity int
}

// Store reads products and branch stock.
type Store interface {
	ProductsBySize(ctx context.Context, size TireSize) ([]Product, error)
	ProductsByRim(ctx context.Context, diameter int) ([]Product, error)
	BranchesWithStock(ctx context.Context, productIDs []int64, minQuantity int) ([]BranchStock, error)
}

// Service answers stock questions for the stock flow.
type Service struct {
	store  Store
	logger *logging.Logger
}

// NewService wires the stock service.
func NewService(store Store, logger *logging.Logger) *Service {
	if store == nil {
		panic("stock: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger}
}

// ProductsByRim exposes the rim query for the equivalence search.
func (s *Service) ProductsByRim(ctx context.Context, diameter int) ([]Product, error) {
	products, err := s.store.ProductsByRim(ctx, diameter)
	if err != nil {
		return nil, fmt.Errorf("stock: products by rim: %w", err)
	}
	return products, nil
}

// SearchByTireSize lists products of the exact size. With a branch code, products are
// sorted by that branch's stock (highest first), then by price; otherwise by price.
func (s *Service) SearchByTireSize(ctx context.Context, size TireSize, branchCode string) ([]ProductWithStock, error) {
	ctx, span := stockTracer.Start(ctx, "stock.search_by_size")
	defer span.End()
	span.SetAttributes(attribute.String("size", size.String()), attribute.String("branch_code", branchCode))

	products, err := s.store.ProductsBySize(ctx, size)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("stock: search %s: %w", size, err)
	}

	out := make([]ProductWithStock, 0, len(products))
	for _, p := range products {
		out = append(out, WithStock(p, branchCode))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if branchCode != "" && out[i].BranchStock != out[j].BranchStock {
			return out[i].BranchStock > out[j].BranchStock
		}
		return out[i].Price < out[j].Price
	})
	return out, nil
}

// WithStock annotates p with its total stock and the stock held by branchCode.
func WithStock(p Product, branchCode string) ProductWithStock {
	out := ProductWithStock{
		ProductID:   p.ID,
		Brand:       p.Brand,
		Model:       p.Model,
		SizeDisplay: p.SizeDisplay,
		Price:       p.Price,
		TotalStock:  p.TotalStock(),
	}
	if out.SizeDisplay == "" {
		out.SizeDisplay = p.Size.String()
	}
	if branchCode != "" {
		if q, ok := p.Stock[branchCode]; ok {
			out.BranchStock = q
			out.BranchCode = branchCode
		}
	}
	return out
}

// BranchesWithStock lists branches holding at least minQuantity units of one of the
// products. Branches are ordered by total quantity, highest first.
func (s *Service) BranchesWithStock(ctx context.Context, productIDs []int64, minQuantity int) ([]BranchStock, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	if minQuantity <= 0 {
		minQuantity = DefaultMinPairQuantity
	}
	branches, err := s.store.BranchesWithStock(ctx, productIDs, minQuantity)
	if err != nil {
		return nil, fmt.Errorf("stock: branches with stock: %w", err)
	}
	return branches, nil
}

// OtherBranchesWithStock is BranchesWithStock without the excluded branch.
func (s *Service) OtherBranchesWithStock(ctx context.Context, productIDs []int64, exclude string) ([]BranchStock, error) {
	branches, err := s.BranchesWithStock(ctx, productIDs, DefaultMinPairQuantity)
	if err != nil {
		return nil, err
	}
	out := branches[:0]
	for _, b := range branches {
		if b.BranchCode != exclude {
			out = append(out, b)
		}
	}
	return out, nil
}

// ProductIDs collects the ids of products.
func ProductIDs(products []ProductWithStock) []int64 {
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ProductID)
	}
	return ids
}
