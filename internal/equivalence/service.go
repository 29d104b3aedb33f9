package equivalence

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Catalog supplies candidate products on a rim diameter.
type Catalog interface {
	ProductsByRim(ctx context.Context, diameter int) ([]stock.Product, error)
}

// Equivalent is an alternative size with stock.
type Equivalent struct {
	ProductID           int64
	Brand               string
	Model               string
	SizeDisplay         string
	Size                stock.TireSize
	Price               float64
	Level               Level
	DiameterDiff        float64
	DiameterDiffPercent float64
	TotalStock          int
	BranchStock         int
	Availability        stock.Availability
}

// RelevantStock is the branch stock when a branch was given, else the total.
func (e Equivalent) RelevantStock(branchCode string) int {
	if branchCode != "" {
		return e.BranchStock
	}
	return e.TotalStock
}

// Service runs the equivalence search.
type Service struct {
	catalog Catalog
	logger  *logging.Logger
}

// NewService wires the equivalence search to a catalog.
func NewService(catalog Catalog, logger *logging.Logger) *Service {
	if catalog == nil {
		panic("equivalence: catalog cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{catalog: catalog, logger: logger}
}

// FindEquivalents returns other sizes on the same rim whose overall diameter is
// within tolerancePercent of size, holding at least one unit (at branchCode when
// given). A tolerance of zero or less uses DefaultTolerancePercent.
func (s *Service) FindEquivalents(ctx context.Context, size stock.TireSize, branchCode string, tolerancePercent float64) ([]Equivalent, error) {
	if tolerancePercent <= 0 {
		tolerancePercent = DefaultTolerancePercent
	}
	products, err := s.catalog.ProductsByRim(ctx, size.Diameter)
	if err != nil {
		return nil, fmt.Errorf("equivalence: load rim %d: %w", size.Diameter, err)
	}

	reference := OverallDiameter(size)
	var out []Equivalent
	for _, p := range products {
		if p.Size == size || p.Size.Diameter != size.Diameter {
			continue
		}
		candidate := OverallDiameter(p.Size)
		diff := candidate - reference
		diffPercent := diff / reference * 100
		if math.Abs(diffPercent) > tolerancePercent {
			continue
		}

		ws := stock.WithStock(p, branchCode)
		eq := Equivalent{
			ProductID:           p.ID,
			Brand:               p.Brand,
			Model:               p.Model,
			SizeDisplay:         ws.SizeDisplay,
			Size:                p.Size,
			Price:               p.Price,
			Level:               LevelFor(diffPercent),
			DiameterDiff:        round2(diff),
			DiameterDiffPercent: round2(diffPercent),
			TotalStock:          ws.TotalStock,
			BranchStock:         ws.BranchStock,
		}
		relevant := eq.RelevantStock(branchCode)
		if relevant < 1 {
			continue
		}
		eq.Availability = stock.Classify(relevant)
		out = append(out, eq)
	}

	Rank(out, branchCode)
	return out, nil
}

// Rank orders equivalents by level, then relevant stock (highest first), then price.
func Rank(eqs []Equivalent, branchCode string) {
	sort.SliceStable(eqs, func(i, j int) bool {
		a, b := eqs[i], eqs[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		sa, sb := a.RelevantStock(branchCode), b.RelevantStock(branchCode)
		if sa != sb {
			return sa > sb
		}
		return a.Price < b.Price
	})
}
