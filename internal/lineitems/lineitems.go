// Package lineitems maintains the in-memory working set of priced lines
// while a quote or invoice is being built in the wizard. Items snapshot
// catalog pricing at add time; the collection keeps its header totals in
// step with every mutation so callers never recompute them.
package lineitems

import (
	"errors"
	"fmt"

	"github.com/maxvolts/maxvolts/internal/pricing"
)

var (
	// ErrIndexOutOfRange indicates an edit against a position that does not exist.
	ErrIndexOutOfRange = errors.New("line item index out of range")
	// ErrInvalidSelection indicates a structurally invalid add request.
	ErrInvalidSelection = errors.New("invalid line item selection")
)

// Item is one priced line. Name, UnitValue, Markup and VATRate are copied
// from the catalog product when the item is added and the product reference
// is locked from then on; only Quantity, Description, Markup and VATRate
// may change through Edit.
type Item struct {
	ProductID   int64   `json:"product_id"`
	Name        string  `json:"name"`
	UnitValue   float64 `json:"value"`
	Markup      float64 `json:"markup"`
	VATRate     float64 `json:"vat_rate"`
	Quantity    float64 `json:"quantity"`
	Description string  `json:"description"`
	TotalValue  float64 `json:"total_value"`
	TotalVAT    float64 `json:"total_vat"`
}

// StoredTotal implements pricing.Priced.
func (i Item) StoredTotal() float64 { return i.TotalValue }

// StoredVAT implements pricing.Priced.
func (i Item) StoredVAT() float64 { return i.TotalVAT }

// Selection carries everything needed to add a line from a catalog product.
type Selection struct {
	ProductID   int64
	Name        string
	UnitValue   float64
	Markup      float64
	VATRate     float64
	Quantity    float64
	Description string
}

// Update carries the editable fields for an existing line. Nil means keep.
// There is deliberately no product field: the product reference is
// immutable after Add.
type Update struct {
	Quantity    *float64
	Description *string
	Markup      *float64
	VATRate     *float64
}

// Collection is the ordered working set. Order is insertion order and is
// preserved through edits.
type Collection struct {
	items      []Item
	totalValue float64
	totalVAT   float64
}

// New returns an empty collection.
func New() *Collection {
	return &Collection{}
}

// Load rebuilds a collection from persisted items, e.g. when an existing
// quote is opened for editing. Stored totals are trusted as-is.
func Load(items []Item) *Collection {
	c := &Collection{items: append([]Item(nil), items...)}
	c.recompute()
	return c
}

// Add validates the selection, prices it and appends it to the working set.
func (c *Collection) Add(sel Selection) (Item, error) {
	if sel.ProductID <= 0 {
		return Item{}, fmt.Errorf("%w: no product selected", ErrInvalidSelection)
	}
	if sel.Quantity < 1 {
		return Item{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidSelection)
	}
	if sel.Markup < 0 || sel.VATRate < 0 {
		return Item{}, fmt.Errorf("%w: markup and vat must not be negative", ErrInvalidSelection)
	}

	item := Item{
		ProductID:   sel.ProductID,
		Name:        sel.Name,
		UnitValue:   sel.UnitValue,
		Markup:      sel.Markup,
		VATRate:     sel.VATRate,
		Quantity:    sel.Quantity,
		Description: sel.Description,
	}
	item.TotalValue = pricing.LineTotal(item.Quantity, item.UnitValue, item.Markup, item.VATRate)
	item.TotalVAT = pricing.LineVAT(item.Quantity, item.UnitValue, item.Markup, item.VATRate)

	c.items = append(c.items, item)
	c.recompute()
	return item, nil
}

// Edit replaces the editable fields of the item at index and recomputes its
// totals. The product reference never changes.
func (c *Collection) Edit(index int, upd Update) (Item, error) {
	if index < 0 || index >= len(c.items) {
		return Item{}, ErrIndexOutOfRange
	}

	item := c.items[index]
	if upd.Quantity != nil {
		if *upd.Quantity < 1 {
			return Item{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidSelection)
		}
		item.Quantity = *upd.Quantity
	}
	if upd.Description != nil {
		item.Description = *upd.Description
	}
	if upd.Markup != nil {
		if *upd.Markup < 0 {
			return Item{}, fmt.Errorf("%w: markup must not be negative", ErrInvalidSelection)
		}
		item.Markup = *upd.Markup
	}
	if upd.VATRate != nil {
		if *upd.VATRate < 0 {
			return Item{}, fmt.Errorf("%w: vat must not be negative", ErrInvalidSelection)
		}
		item.VATRate = *upd.VATRate
	}

	item.TotalValue = pricing.LineTotal(item.Quantity, item.UnitValue, item.Markup, item.VATRate)
	item.TotalVAT = pricing.LineVAT(item.Quantity, item.UnitValue, item.Markup, item.VATRate)

	c.items[index] = item
	c.recompute()
	return item, nil
}

// Remove deletes the item at index. An invalid index is a no-op.
func (c *Collection) Remove(index int) {
	if index < 0 || index >= len(c.items) {
		return
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	c.recompute()
}

// Items returns a copy of the working set in insertion order.
func (c *Collection) Items() []Item {
	return append([]Item(nil), c.items...)
}

// Len reports how many lines are in the working set.
func (c *Collection) Len() int { return len(c.items) }

// TotalValue is the cached header total, updated on every mutation.
func (c *Collection) TotalValue() float64 { return c.totalValue }

// TotalVAT is the cached header VAT total, updated on every mutation.
func (c *Collection) TotalVAT() float64 { return c.totalVAT }

func (c *Collection) recompute() {
	c.totalValue = pricing.SumTotals(c.items)
	c.totalVAT = pricing.SumVATs(c.items)
}
