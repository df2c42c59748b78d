package market

import (
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrencyID is the currency used by new preference sets.
// See https://api.mercadolibre.com/currencies/ for valid codes.
const DefaultCurrencyID = "ARS"

// DefaultMarketplaceFee is the fee retained by the marketplace when a set
// does not override it.
var DefaultMarketplaceFee = decimal.RequireFromString("5.00")

// ReferenceFunc produces an external reference for sets that were not given
// one explicitly.
type ReferenceFunc func() string

// TimestampReference returns the current Unix time in seconds. Two sets
// submitted within the same second get the same value.
func TimestampReference() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

// UUIDReference returns a random UUID string.
func UUIDReference() string {
	return uuid.NewString()
}

// Payer holds the buyer fields sent with a preference.
type Payer struct {
	Name           string          `json:"name,omitempty"`
	Surname        string          `json:"surname,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          *Phone          `json:"phone,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
	Address        *Address        `json:"address,omitempty"`
}

// Phone is a payer phone number.
type Phone struct {
	AreaCode string `json:"area_code,omitempty"`
	Number   string `json:"number,omitempty"`
}

// Identification is a payer identity document.
type Identification struct {
	Type   string `json:"type,omitempty"`
	Number string `json:"number,omitempty"`
}

// Address is a payer postal address.
type Address struct {
	ZipCode      string `json:"zip_code,omitempty"`
	StreetName   string `json:"street_name,omitempty"`
	StreetNumber int    `json:"street_number,omitempty"`
}

// BackURLs are the pages the buyer returns to after checkout.
type BackURLs struct {
	Failure string `json:"failure"`
	Pending string `json:"pending"`
	Success string `json:"success"`
}

// IsZero reports whether no URL is set.
func (b BackURLs) IsZero() bool {
	return b.Failure == "" && b.Pending == "" && b.Success == ""
}

// PaymentMethodID references a payment method or payment type by id,
// e.g. {"id": "amex"} or {"id": "ticket"}.
type PaymentMethodID struct {
	ID string `json:"id"`
}

// PaymentMethods restricts the methods offered at checkout.
type PaymentMethods struct {
	ExcludedPaymentMethods []PaymentMethodID `json:"excluded_payment_methods"`
	ExcludedPaymentTypes   []PaymentMethodID `json:"excluded_payment_types"`
	Installments           int               `json:"installments"`
}

func (p PaymentMethods) clone() PaymentMethods {
	out := PaymentMethods{
		ExcludedPaymentMethods: slices.Clone(p.ExcludedPaymentMethods),
		ExcludedPaymentTypes:   slices.Clone(p.ExcludedPaymentTypes),
		Installments:           p.Installments,
	}
	if out.ExcludedPaymentMethods == nil {
		out.ExcludedPaymentMethods = []PaymentMethodID{}
	}
	if out.ExcludedPaymentTypes == nil {
		out.ExcludedPaymentTypes = []PaymentMethodID{}
	}
	return out
}

// PreferenceSet is an ordered collection of items plus the checkout
// settings submitted together as one preference. Item ids are unique
// within a set unless Add is told otherwise.
type PreferenceSet struct {
	items      []*Item
	registered map[string]int

	payer             Payer
	backURLs          BackURLs
	paymentMethods    PaymentMethods
	marketplaceFee    decimal.Decimal
	currencyID        string
	externalReference string
	referenceFunc     ReferenceFunc
}

// PreferenceOption configures a PreferenceSet.
type PreferenceOption func(*PreferenceSet)

// WithDefaultCurrency sets the currency inherited by items without one.
func WithDefaultCurrency(currencyID string) PreferenceOption {
	return func(s *PreferenceSet) {
		s.currencyID = currencyID
	}
}

// WithMarketplaceFee overrides DefaultMarketplaceFee.
func WithMarketplaceFee(fee decimal.Decimal) PreferenceOption {
	return func(s *PreferenceSet) {
		s.marketplaceFee = fee
	}
}

// WithExternalReference fixes the external reference of the set.
func WithExternalReference(ref string) PreferenceOption {
	return func(s *PreferenceSet) {
		s.externalReference = ref
	}
}

// WithReferenceFunc replaces the fallback reference generator.
func WithReferenceFunc(f ReferenceFunc) PreferenceOption {
	return func(s *PreferenceSet) {
		s.referenceFunc = f
	}
}

// WithPayer sets the payer.
func WithPayer(p Payer) PreferenceOption {
	return func(s *PreferenceSet) {
		s.payer = p
	}
}

// WithBackURLs sets the return URLs.
func WithBackURLs(b BackURLs) PreferenceOption {
	return func(s *PreferenceSet) {
		s.backURLs = b
	}
}

// WithPaymentMethods sets the payment method restrictions.
func WithPaymentMethods(p PaymentMethods) PreferenceOption {
	return func(s *PreferenceSet) {
		s.paymentMethods = p.clone()
	}
}

// NewPreferenceSet creates an empty set using DefaultCurrencyID,
// DefaultMarketplaceFee, a single installment and timestamp references.
func NewPreferenceSet(opts ...PreferenceOption) *PreferenceSet {
	s := &PreferenceSet{
		items:          []*Item{},
		registered:     map[string]int{},
		paymentMethods: PaymentMethods{Installments: 1}.clone(),
		marketplaceFee: DefaultMarketplaceFee,
		currencyID:     DefaultCurrencyID,
		referenceFunc:  TimestampReference,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends item and registers its id. It fails with ErrDuplicateItem
// when the id is already registered, unless allowDuplicate is set.
// It returns the current items.
func (s *PreferenceSet) Add(item *Item, allowDuplicate bool) ([]*Item, error) {
	if item == nil {
		return s.Items(), localError(ErrInvalidItem, "item must not be nil")
	}
	if item.owner != nil && item.owner != s {
		return s.Items(), localError(ErrItemOwned, "item %q", item.ID)
	}
	if s.registered[item.ID] > 0 && !allowDuplicate {
		return s.Items(), localError(ErrDuplicateItem, "item %q", item.ID)
	}

	item.owner = s
	s.items = append(s.items, item)
	s.registered[item.ID]++

	return s.Items(), nil
}

// AddMany adds each item in order without the duplicate override. It is
// not atomic: items added before a failure stay in the set.
func (s *PreferenceSet) AddMany(items ...*Item) ([]*Item, error) {
	for _, item := range items {
		if _, err := s.Add(item, false); err != nil {
			return s.Items(), err
		}
	}
	return s.Items(), nil
}

// Remove drops the first item with the given id. The id stays registered
// while other items with it remain.
func (s *PreferenceSet) Remove(id string) ([]*Item, error) {
	if s.registered[id] == 0 {
		return s.Items(), localError(ErrItemNotFound, "item %q", id)
	}

	idx := slices.IndexFunc(s.items, func(it *Item) bool { return it.ID == id })
	removed := s.items[idx]
	s.items = slices.Delete(s.items, idx, idx+1)
	// The same pointer may have been added twice.
	if !slices.Contains(s.items, removed) {
		removed.owner = nil
	}

	s.registered[id]--
	if s.registered[id] == 0 {
		delete(s.registered, id)
	}

	return s.Items(), nil
}

// Items returns a copy of the items in insertion order.
func (s *PreferenceSet) Items() []*Item {
	return slices.Clone(s.items)
}

// Len returns the number of items.
func (s *PreferenceSet) Len() int {
	return len(s.items)
}

// Registered reports whether id belongs to at least one item.
func (s *PreferenceSet) Registered(id string) bool {
	return s.registered[id] > 0
}

// ExternalReference returns the caller-supplied reference, or a freshly
// generated one.
func (s *PreferenceSet) ExternalReference() string {
	if s.externalReference != "" {
		return s.externalReference
	}
	return s.referenceFunc()
}

// SetExternalReference fixes the external reference.
func (s *PreferenceSet) SetExternalReference(ref string) {
	s.externalReference = ref
}

// Currency returns the default currency for items without their own.
func (s *PreferenceSet) Currency() string {
	return s.currencyID
}

// SetCurrency changes the default currency.
func (s *PreferenceSet) SetCurrency(currencyID string) {
	s.currencyID = currencyID
}

// Payer returns the payer.
func (s *PreferenceSet) Payer() Payer {
	return s.payer
}

// SetPayer replaces the payer.
func (s *PreferenceSet) SetPayer(p Payer) {
	s.payer = p
}

// BackURLs returns the failure, pending and success URLs.
func (s *PreferenceSet) BackURLs() BackURLs {
	return s.backURLs
}

// SetBackURLs replaces the return URLs.
func (s *PreferenceSet) SetBackURLs(b BackURLs) {
	s.backURLs = b
}

// PaymentMethods returns a copy of the payment method restrictions. By
// default nothing is excluded and a single installment is accepted.
func (s *PreferenceSet) PaymentMethods() PaymentMethods {
	return s.paymentMethods.clone()
}

// SetPaymentMethods replaces the payment method restrictions.
func (s *PreferenceSet) SetPaymentMethods(p PaymentMethods) {
	s.paymentMethods = p.clone()
}

// MarketplaceFee returns the marketplace fee, possibly zero.
func (s *PreferenceSet) MarketplaceFee() decimal.Decimal {
	return s.marketplaceFee
}

// SetMarketplaceFee replaces the marketplace fee.
func (s *PreferenceSet) SetMarketplaceFee(fee decimal.Decimal) {
	s.marketplaceFee = fee
}

// PreferencePayload is the JSON body submitted to the preferences endpoint.
type PreferencePayload struct {
	Items             []ItemPayload  `json:"items"`
	ExternalReference string         `json:"external_reference"`
	Payer             Payer          `json:"payer"`
	MarketplaceFee    json.Number    `json:"marketplace_fee"`
	PaymentMethods    PaymentMethods `json:"payment_methods"`
	BackURLs          *BackURLs      `json:"back_urls,omitempty"`
}

// Serialize builds the payload for submission. Items keep their insertion
// order. back_urls is omitted when none is set.
func (s *PreferenceSet) Serialize() (PreferencePayload, error) {
	items := make([]ItemPayload, 0, len(s.items))
	for _, it := range s.items {
		p, err := it.Serialize()
		if err != nil {
			return PreferencePayload{}, err
		}
		items = append(items, p)
	}

	payload := PreferencePayload{
		Items:             items,
		ExternalReference: s.ExternalReference(),
		Payer:             s.payer,
		MarketplaceFee:    json.Number(s.marketplaceFee.String()),
		PaymentMethods:    s.paymentMethods.clone(),
	}
	if !s.backURLs.IsZero() {
		b := s.backURLs
		payload.BackURLs = &b
	}

	return payload, nil
}
