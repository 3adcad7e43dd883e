// Package cart holds the session cart: a plain map of product id to quantity
// with pure operations over it. Prices are never stored in the cart.
package cart

import (
	"errors"
	"sort"
	"time"

	"bevera/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when a product has no stock to add.
var ErrUnavailable = errors.New("product is not available")

// Cart maps product ids to quantities.
type Cart map[uint]int

// New returns an empty cart.
func New() Cart { return Cart{} }

// Add merges qty into the line for productID, clamping the merged quantity to
// available. It returns the stored quantity and whether it was truncated.
// A quantity below one counts as one.
func Add(c Cart, productID uint, qty, available int) (int, bool, error) {
	if qty < 1 {
		qty = 1
	}
	if available <= 0 {
		return c[productID], false, ErrUnavailable
	}
	existing := c[productID]
	if existing > available {
		existing = available
	}
	// Compare against the headroom so a huge qty cannot overflow the sum.
	desired, truncated := existing+qty, false
	if qty > available-existing {
		desired, truncated = available, true
	}
	c[productID] = desired
	return desired, truncated, nil
}

// Update sets the absolute quantity of a line. A quantity of zero or less,
// or a product without stock, removes the line.
func Update(c Cart, productID uint, qty, available int) (int, bool) {
	if qty <= 0 || available <= 0 {
		delete(c, productID)
		return 0, available <= 0 && qty > 0
	}
	truncated := false
	if qty > available {
		qty = available
		truncated = true
	}
	c[productID] = qty
	return qty, truncated
}

// Remove deletes the line unconditionally.
func Remove(c Cart, productID uint) {
	delete(c, productID)
}

// Count is the number of units in the cart.
func Count(c Cart) int {
	n := 0
	for _, q := range c {
		n += q
	}
	return n
}

// ProductIDs returns the ids in the cart in ascending order.
func ProductIDs(c Cart) []uint {
	ids := make([]uint, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Line is one priced cart row.
type Line struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	ImagePath string          `json:"image_path,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Available int             `json:"available"`
	Total     decimal.Decimal `json:"total"`
}

// Summary is a cart priced against live product data.
type Summary struct {
	Lines      []Line          `json:"lines"`
	Missing    []uint          `json:"missing,omitempty"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	ItemCount  int             `json:"item_count"`
}

// Price computes every line from the current effective price of the given
// products. Cart entries whose product is absent are listed as Missing and
// excluded from the total.
func Price(c Cart, products []models.Product, now time.Time) Summary {
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	s := Summary{Lines: []Line{}, GrandTotal: decimal.Zero}
	for _, id := range ProductIDs(c) {
		p, ok := byID[id]
		if !ok {
			s.Missing = append(s.Missing, id)
			continue
		}
		qty := c[id]
		unit := p.EffectivePrice(now)
		line := Line{
			ProductID: id,
			Name:      p.Name,
			ImagePath: p.MainImagePath(),
			UnitPrice: unit,
			Quantity:  qty,
			Available: p.StockQty,
			Total:     unit.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		}
		s.Lines = append(s.Lines, line)
		s.GrandTotal = s.GrandTotal.Add(line.Total)
		s.ItemCount += qty
	}
	sort.SliceStable(s.Lines, func(i, j int) bool { return s.Lines[i].Name < s.Lines[j].Name })
	return s
}
