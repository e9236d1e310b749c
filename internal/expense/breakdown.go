package expense

import (
	"fmt"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryOfficial Category = "official"
	CategorySite     Category = "site"
	CategoryLegacy   Category = "legacy"
)

type LineItem struct {
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
}

// ItemGroup is one named sub-category of a breakdown with its line items.
type ItemGroup struct {
	Name  string     `json:"name"`
	Items []LineItem `json:"items"`
}

type PersonalItems struct {
	Food   []LineItem `json:"food,omitempty"`
	Fuel   []LineItem `json:"fuel,omitempty"`
	Travel []LineItem `json:"travel,omitempty"`
	Stay   []LineItem `json:"stay,omitempty"`
	Other  []LineItem `json:"other,omitempty"`
}

type OfficialItems struct {
	Travel        []LineItem `json:"travel,omitempty"`
	Accommodation []LineItem `json:"accommodation,omitempty"`
	Meals         []LineItem `json:"meals,omitempty"`
	Client        []LineItem `json:"client,omitempty"`
	Other         []LineItem `json:"other,omitempty"`
}

type SiteItems struct {
	Material  []LineItem `json:"material,omitempty"`
	Labour    []LineItem `json:"labour,omitempty"`
	Transport []LineItem `json:"transport,omitempty"`
	Equipment []LineItem `json:"equipment,omitempty"`
	Other     []LineItem `json:"other,omitempty"`
}

// LegacyAmounts is the flat per-field shape older expenses were recorded in.
type LegacyAmounts struct {
	Hotel         Amount `json:"hotel"`
	Transport     Amount `json:"transport"`
	Fuel          Amount `json:"fuel"`
	Meals         Amount `json:"meals"`
	Entertainment Amount `json:"entertainment"`
}

// Breakdown holds exactly one variant, the one named by Category.
type Breakdown struct {
	Category Category       `json:"category"`
	Personal *PersonalItems `json:"personal,omitempty"`
	Official *OfficialItems `json:"official,omitempty"`
	Site     *SiteItems     `json:"site,omitempty"`
	Legacy   *LegacyAmounts `json:"legacy,omitempty"`
}

// Taxonomy lists the sub-categories each category accepts, in display order.
var Taxonomy = map[Category][]string{
	CategoryPersonal: {"food", "fuel", "travel", "stay", "other"},
	CategoryOfficial: {"travel", "accommodation", "meals", "client", "other"},
	CategorySite:     {"material", "labour", "transport", "equipment", "other"},
	CategoryLegacy:   {"hotel", "transport", "fuel", "meals", "entertainment"},
}

var ErrInvalidBreakdown = internal.NewValidationError("breakdown does not match its category", internal.ErrCodeInvalidCategory)

func (b Breakdown) Validate() error {
	set := 0
	for _, present := range []bool{b.Personal != nil, b.Official != nil, b.Site != nil, b.Legacy != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return ErrInvalidBreakdown
	}

	var ok bool
	switch b.Category {
	case CategoryPersonal:
		ok = b.Personal != nil
	case CategoryOfficial:
		ok = b.Official != nil
	case CategorySite:
		ok = b.Site != nil
	case CategoryLegacy:
		ok = b.Legacy != nil
	}
	if !ok {
		return ErrInvalidBreakdown
	}

	for _, g := range b.Groups() {
		for i, item := range g.Items {
			if item.Amount < 0 {
				field := fmt.Sprintf("%s.%s[%d].amount", b.Category, g.Name, i)
				return internal.NewValidationFieldError(field, "amount cannot be negative", internal.ErrCodeInvalidAmount)
			}
		}
	}
	if l := b.Legacy; l != nil {
		for _, a := range []Amount{l.Hotel, l.Transport, l.Fuel, l.Meals, l.Entertainment} {
			if a < 0 {
				return internal.NewValidationFieldError("legacy", "amount cannot be negative", internal.ErrCodeInvalidAmount)
			}
		}
	}
	return nil
}

// Groups returns the non-empty line-item groups in taxonomy order. Legacy
// breakdowns have no line items.
func (b Breakdown) Groups() []ItemGroup {
	var groups []ItemGroup
	add := func(name string, items []LineItem) {
		if len(items) > 0 {
			groups = append(groups, ItemGroup{Name: name, Items: items})
		}
	}

	switch {
	case b.Personal != nil:
		p := b.Personal
		add("food", p.Food)
		add("fuel", p.Fuel)
		add("travel", p.Travel)
		add("stay", p.Stay)
		add("other", p.Other)
	case b.Official != nil:
		o := b.Official
		add("travel", o.Travel)
		add("accommodation", o.Accommodation)
		add("meals", o.Meals)
		add("client", o.Client)
		add("other", o.Other)
	case b.Site != nil:
		s := b.Site
		add("material", s.Material)
		add("labour", s.Labour)
		add("transport", s.Transport)
		add("equipment", s.Equipment)
		add("other", s.Other)
	}
	return groups
}

// LegacyGroups lists each non-zero legacy field as a one-item group named
// after the field, for display and export. Sum never counts these.
func (b Breakdown) LegacyGroups() []ItemGroup {
	l := b.Legacy
	if l == nil {
		return nil
	}
	var groups []ItemGroup
	for _, f := range []struct {
		name   string
		amount Amount
	}{
		{"hotel", l.Hotel},
		{"transport", l.Transport},
		{"fuel", l.Fuel},
		{"meals", l.Meals},
		{"entertainment", l.Entertainment},
	} {
		if f.amount != 0 {
			groups = append(groups, ItemGroup{Name: f.name, Items: []LineItem{{Amount: f.amount}}})
		}
	}
	return groups
}

func (b Breakdown) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, g := range b.Groups() {
		total = total.Add(sumItems(g.Items))
	}
	if l := b.Legacy; l != nil {
		for _, a := range []Amount{l.Hotel, l.Transport, l.Fuel, l.Meals, l.Entertainment} {
			total = total.Add(a.Decimal())
		}
	}
	return total
}

// NamedAmounts projects any variant onto the five legacy fields used by
// notifications.
func (b Breakdown) NamedAmounts() LegacyAmounts {
	if b.Legacy != nil {
		return *b.Legacy
	}

	var out LegacyAmounts
	switch {
	case b.Personal != nil:
		p := b.Personal
		out.Hotel = AmountFromDecimal(sumItems(p.Stay))
		out.Transport = AmountFromDecimal(sumItems(p.Travel))
		out.Fuel = AmountFromDecimal(sumItems(p.Fuel))
		out.Meals = AmountFromDecimal(sumItems(p.Food))
	case b.Official != nil:
		o := b.Official
		out.Hotel = AmountFromDecimal(sumItems(o.Accommodation))
		out.Transport = AmountFromDecimal(sumItems(o.Travel))
		out.Meals = AmountFromDecimal(sumItems(o.Meals))
		out.Entertainment = AmountFromDecimal(sumItems(o.Client))
	case b.Site != nil:
		out.Transport = AmountFromDecimal(sumItems(b.Site.Transport))
	}
	return out
}

func sumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount.Decimal())
	}
	return total
}
