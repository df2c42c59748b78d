package market

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Item is a single purchasable line of a preference. Items without an
// explicit currency take the default currency of the PreferenceSet that
// owns them.
type Item struct {
	ID          string
	Title       string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	CurrencyID  string
	PictureURL  string

	owner *PreferenceSet
}

// ItemOption configures an Item.
type ItemOption func(*Item)

// WithDescription sets the item description.
func WithDescription(d string) ItemOption {
	return func(i *Item) {
		i.Description = d
	}
}

// WithQuantity overrides the default quantity of 1.
func WithQuantity(q int) ItemOption {
	return func(i *Item) {
		i.Quantity = q
	}
}

// WithCurrency pins the item currency instead of inheriting it.
func WithCurrency(currencyID string) ItemOption {
	return func(i *Item) {
		i.CurrencyID = currencyID
	}
}

// WithPictureURL sets the full URL of the item image.
func WithPictureURL(u string) ItemOption {
	return func(i *Item) {
		i.PictureURL = u
	}
}

// NewItem creates an item with quantity 1 and no explicit currency.
func NewItem(id, title string, unitPrice decimal.Decimal, opts ...ItemOption) *Item {
	i := &Item{
		ID:        id,
		Title:     title,
		Quantity:  1,
		UnitPrice: unitPrice,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ItemPayload is the wire representation of an Item.
type ItemPayload struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
	CurrencyID  string      `json:"currency_id"`
	PictureURL  string      `json:"picture_url"`
}

// Currency resolves the item currency: the explicit CurrencyID first, then
// the owning set's default currency.
func (i *Item) Currency() (string, error) {
	if i.CurrencyID != "" {
		return i.CurrencyID, nil
	}
	if i.owner != nil && i.owner.Currency() != "" {
		return i.owner.Currency(), nil
	}
	return "", localError(ErrNoCurrency, "item %q has no currency_id and no preference set default", i.ID)
}

// Owner returns the preference set the item was added to, or nil.
func (i *Item) Owner() *PreferenceSet {
	return i.owner
}

// Validate checks the id, quantity and unit price constraints.
func (i *Item) Validate() error {
	if i.ID == "" {
		return localError(ErrInvalidItem, "id is required")
	}
	if i.Quantity < 1 {
		return localError(ErrInvalidItem, "item %q quantity must be positive (got %d)", i.ID, i.Quantity)
	}
	if i.UnitPrice.IsNegative() {
		return localError(ErrInvalidItem, "item %q unit price must not be negative (got %s)", i.ID, i.UnitPrice)
	}
	return nil
}

// Serialize returns the wire payload for the item.
func (i *Item) Serialize() (ItemPayload, error) {
	if err := i.Validate(); err != nil {
		return ItemPayload{}, err
	}

	currency, err := i.Currency()
	if err != nil {
		return ItemPayload{}, err
	}

	return ItemPayload{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Quantity:    i.Quantity,
		UnitPrice:   json.Number(i.UnitPrice.String()),
		CurrencyID:  currency,
		PictureURL:  i.PictureURL,
	}, nil
}
