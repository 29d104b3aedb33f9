package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// ErrBranchNotFound is returned by stores when no active branch has the code.
var ErrBranchNotFound = errors.New("location: branch not found")

// BranchInfo is a physical branch as the stock flow sees it.
type BranchInfo struct {
	ID   string
	Code string
	Name string
	City string
}

// Store reads branches.
type Store interface {
	BranchByCode(ctx context.Context, code string) (BranchInfo, error)
	ActiveBranches(ctx context.Context) ([]BranchInfo, error)
}

// Resolution is a city the user named and the branch that serves it.
type Resolution struct {
	City   string
	Branch BranchInfo
}

// Service maps what users write about where they are to branches.
type Service struct {
	store  Store
	logger *logging.Logger
}

// NewService wires the location service.
func NewService(store Store, logger *logging.Logger) *Service {
	if store == nil {
		panic("location: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger}
}

// BranchCodeFromCity resolves a city name to a branch code.
func (s *Service) BranchCodeFromCity(city string) (string, bool) {
	return BranchCodeFromCity(city)
}

// BranchByCode returns the active branch for code, or nil when none exists.
func (s *Service) BranchByCode(ctx context.Context, code string) (*BranchInfo, error) {
	b, err := s.store.BranchByCode(ctx, code)
	if errors.Is(err, ErrBranchNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("location: branch %s: %w", code, err)
	}
	return &b, nil
}

// Resolve detects a city in text and loads its branch. ok is false when the text
// names no known city or the branch is not active.
func (s *Service) Resolve(ctx context.Context, text string) (Resolution, bool, error) {
	city, ok := DetectCity(text)
	if !ok {
		return Resolution{}, false, nil
	}
	code, ok := BranchCodeFromCity(city)
	if !ok {
		return Resolution{}, false, nil
	}
	branch, err := s.BranchByCode(ctx, code)
	if err != nil {
		return Resolution{}, false, err
	}
	if branch == nil {
		s.logger.Warn("location: city maps to inactive branch", "city", city, "branch_code", code)
		return Resolution{}, false, nil
	}
	return Resolution{City: city, Branch: *branch}, true, nil
}

// BranchNames lists the display names of every known branch, in display order.
func (s *Service) BranchNames() []string {
	out := make([]string, 0, len(DisplayOrder))
	for _, code := range DisplayOrder {
		out = append(out, DisplayName(code))
	}
	return out
}

// ActiveBranches lists active branches.
func (s *Service) ActiveBranches(ctx context.Context) ([]BranchInfo, error) {
	branches, err := s.store.ActiveBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("location: list branches: %w", err)
	}
	return branches, nil
}
