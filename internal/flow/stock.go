package flow

import (
	"context"

	"github.com/wolfman30/neumaticos-whatsapp/internal/equivalence"
	"github.com/wolfman30/neumaticos-whatsapp/internal/location"
	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
	"github.com/wolfman30/neumaticos-whatsapp/internal/templates"
	"github.com/wolfman30/neumaticos-whatsapp/internal/textnorm"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
)

var (
	transferNegatives   = []string{"mejor no", "otro dia", "despues", "no", "nah"}
	transferAffirmative = []string{"si", "dale", "ok", "bueno", "quiero", "traeme", "traelo", "hacelo"}
)

func searchFor(size stock.ParsedSize, original string) whatsapp.PendingTireSearch {
	return whatsapp.PendingTireSearch{
		Width:           size.Width,
		Profile:         size.Profile,
		Diameter:        size.Diameter,
		OriginalMessage: original,
	}
}

func sizeOf(s whatsapp.PendingTireSearch) stock.TireSize {
	return stock.TireSize{Width: s.Width, Profile: s.Profile, Diameter: s.Diameter}
}

// knownBranchCode returns the branch code for the remembered city.
func (t *turn) knownBranchCode() (string, bool) {
	if t.city == "" || t.branch == "" {
		return "", false
	}
	return location.BranchCodeFromCity(t.city)
}

// startStockSearch begins a stock lookup. With a remembered city the search runs
// immediately; otherwise the user is asked where they are.
func (e *Engine) startStockSearch(ctx context.Context, t *turn, size stock.ParsedSize, original string) {
	search := searchFor(size, original)
	code, ok := t.knownBranchCode()
	if !ok {
		t.enter(whatsapp.StockFlow{Step: whatsapp.StockAwaitingLocation, Search: search})
		t.reply(IntentStock, templates.AskLocation())
		return
	}

	reply, next, err := e.stockResponse(ctx, search, code)
	if err != nil {
		e.logger.Error("flow: stock search failed", "size", search.SizeDisplay(), "branch_code", code, "error", err)
		t.reply(IntentStock, templates.StockError())
		return
	}
	t.enter(whatsapp.StockFlow{Step: whatsapp.StockShowingResults, Search: search})
	t.enter(next)
	t.reply(IntentStock, withCorrection(size, reply))
}

func withCorrection(size stock.ParsedSize, reply string) string {
	if !size.WasCorrected {
		return reply
	}
	return templates.SizeCorrected(size.OriginalWidth, size.String()) + "\n\n" + reply
}

// handleAwaitingLocation resolves the user's city and runs the pending search.
func (e *Engine) handleAwaitingLocation(ctx context.Context, t *turn, search whatsapp.PendingTireSearch) {
	res, ok, err := e.location.Resolve(ctx, t.in.Text)
	if err != nil {
		e.logger.Error("flow: resolve location failed", "error", err)
		t.reply(IntentStock, templates.StockError())
		return
	}
	if !ok {
		if size, found := stock.ParseTireSize(t.in.Text); found {
			t.enter(whatsapp.StockFlow{Step: whatsapp.StockAwaitingLocation, Search: searchFor(size, t.in.Text)})
			t.reply(IntentStock, templates.AskLocation())
			return
		}
		t.reply(IntentStock, templates.LocationNotRecognized(e.location.BranchNames()))
		return
	}

	confirm := templates.ConfirmBranch(res.Branch.Code)
	if !search.HasSize() {
		t.city, t.branch = res.City, res.Branch.ID
		t.enter(whatsapp.Idle{})
		t.reply(IntentStock, confirm)
		return
	}

	reply, next, err := e.stockResponse(ctx, search, res.Branch.Code)
	if err != nil {
		e.logger.Error("flow: stock search failed", "size", search.SizeDisplay(), "branch_code", res.Branch.Code, "error", err)
		t.reply(IntentStock, templates.StockError())
		return
	}
	t.city, t.branch = res.City, res.Branch.ID
	t.enter(whatsapp.StockFlow{Step: whatsapp.StockShowingResults, Search: search})
	t.enter(next)
	t.reply(IntentStock, confirm+"\n\n"+reply)
}

// stockResponse picks the reply for a size at a branch and the state that follows.
// Order: available, last units, single unit, equivalents at the branch, other
// branches, nothing anywhere.
func (e *Engine) stockResponse(ctx context.Context, search whatsapp.PendingTireSearch, branchCode string) (string, whatsapp.ConversationState, error) {
	size := sizeOf(search)
	products, err := e.stock.SearchByTireSize(ctx, size, branchCode)
	if err != nil {
		return "", nil, err
	}
	groups := stock.GroupByAvailability(products)

	switch {
	case len(groups.Available) > 0:
		return templates.AvailableProducts(groups.Available, branchCode, size.String()), whatsapp.Idle{}, nil
	case len(groups.LastUnits) > 0:
		return templates.LastUnitsProducts(groups.LastUnits, branchCode, size.String()), whatsapp.Idle{}, nil
	case len(groups.SingleUnit) > 0:
		eqs, err := e.equivalence.FindEquivalents(ctx, size, branchCode, equivalence.DefaultTolerancePercent)
		if err != nil {
			return "", nil, err
		}
		others, err := e.stock.OtherBranchesWithStock(ctx, stock.ProductIDs(products), branchCode)
		if err != nil {
			return "", nil, err
		}
		reply := templates.SingleUnitWarning(groups.SingleUnit[0], branchCode, eqs, others)
		if len(others) == 0 {
			return reply, whatsapp.Idle{}, nil
		}
		return reply, transferState(search, others[0].BranchCode), nil
	}

	eqs, err := e.equivalence.FindEquivalents(ctx, size, branchCode, equivalence.DefaultTolerancePercent)
	if err != nil {
		return "", nil, err
	}
	if len(eqs) > 0 {
		return templates.NoStockWithEquivalents(size.String(), branchCode, eqs), whatsapp.Idle{}, nil
	}

	everywhere, err := e.stock.SearchByTireSize(ctx, size, "")
	if err != nil {
		return "", nil, err
	}
	others, err := e.stock.OtherBranchesWithStock(ctx, stock.ProductIDs(everywhere), branchCode)
	if err != nil {
		return "", nil, err
	}
	if len(others) > 0 {
		return templates.AvailableInOtherBranch(size.String(), branchCode, others), transferState(search, others[0].BranchCode), nil
	}
	return templates.NoStockAnywhere(size.String()), whatsapp.Idle{}, nil
}

func transferState(search whatsapp.PendingTireSearch, from string) whatsapp.StockFlow {
	search.TransferFromBranch = from
	return whatsapp.StockFlow{Step: whatsapp.StockAwaitingTransferConfirm, Search: search}
}

// handleTransferConfirm reads a yes or no to the inter-branch transfer offer.
// Refusals are checked first so "no quiero" declines.
func (e *Engine) handleTransferConfirm(t *turn, search whatsapp.PendingTireSearch) {
	switch {
	case matchesWord(t.in.Text, transferNegatives):
		t.enter(whatsapp.Idle{})
		t.reply(IntentTransfer, templates.TransferDeclined())
	case matchesWord(t.in.Text, transferAffirmative):
		to, _ := t.knownBranchCode()
		t.enter(whatsapp.Idle{})
		t.result.Alert = "Transferencia entre sucursales solicitada: " + search.SizeDisplay()
		t.reply(IntentTransfer, templates.ConfirmTransfer(search.SizeDisplay(), search.TransferFromBranch, to))
	default:
		t.reply(IntentTransfer, templates.TransferReask())
	}
}

func matchesWord(text string, words []string) bool {
	text = textnorm.Fold(text)
	for _, w := range words {
		if textnorm.HasWord(text, w) {
			return true
		}
	}
	return false
}
