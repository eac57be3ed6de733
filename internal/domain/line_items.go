package domain

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one billed row. Its total is always derived from quantity and
// rate, never stored.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// Line item fields accepted by WithLineItemChange.
const (
	ItemDescription = "description"
	ItemQuantity    = "quantity"
	ItemRate        = "rate"
)

// Total returns quantity × rate.
func (li LineItem) Total() decimal.Decimal {
	return decimal.NewFromFloat(li.Quantity).Mul(decimal.NewFromFloat(li.Rate))
}

// NewLineItemID returns a random UUID v4 string.
func NewLineItemID() string {
	return uuid.New().String()
}

// WithLineItemChange edits the item at index. Description takes the raw text;
// any other field is coerced with ParseNumberOrZero. The item's id, the other
// items and their order are left untouched. An out-of-range index yields an
// unchanged copy.
func (d Document) WithLineItemChange(index int, field string, value any) (Document, error) {
	if field != ItemDescription && field != ItemQuantity && field != ItemRate {
		return d, &ErrValidation{Field: "lineItems." + field, Message: "unknown field"}
	}

	next := d.Clone()
	if index < 0 || index >= len(next.LineItems) {
		return next, nil
	}

	item := next.LineItems[index]
	switch field {
	case ItemDescription:
		s, ok := value.(string)
		if !ok {
			return d, &ErrValidation{Field: "lineItems.description", Message: "must be text"}
		}
		item.Description = s
	case ItemQuantity:
		item.Quantity = ParseNumberOrZero(value)
	case ItemRate:
		item.Rate = ParseNumberOrZero(value)
	}
	next.LineItems[index] = item
	return next, nil
}

// WithLineItemAdded appends an empty item (quantity 1, rate 0) under a fresh id.
func (d Document) WithLineItemAdded(id string) Document {
	next := d.Clone()
	next.LineItems = append(next.LineItems, LineItem{ID: id, Quantity: 1, Rate: 0})
	return next
}

// WithLineItemRemoved drops the item at index. An out-of-range index is a
// silent no-op.
func (d Document) WithLineItemRemoved(index int) Document {
	next := d.Clone()
	if index < 0 || index >= len(next.LineItems) {
		return next
	}
	next.LineItems = slices.Delete(next.LineItems, index, index+1)
	return next
}
