package registry

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// DefaultBaseURL is the supplier-profile application root.
const DefaultBaseURL = "https://apps.oece.gob.pe/perfilprov-ui/"

// Fixed selectors of the search and detail views.
const (
	selSearchInput  = "input#textBuscar"
	selSearchButton = "button#btnBuscar"
	selResultInfo   = "div#idPanelA2 span.tile__proveedor-info"
	selResultLink   = "#idPanelA2 > div.result-data.d-flex.flex-wrap > div > app-tile > a"
	selSupplierCard = "body > app-root > div > div > app-prov-ficha > div > div > div:nth-child(1) > div.col-md-7.col-12 > div.supplier-card"
)

// Field names a supplier attribute read from the profile card.
type Field string

const (
	FieldInfoValue Field = "infoValue"
	FieldEmail     Field = "email"
	FieldRegion    Field = "region"
)

// Fields lists the card fields in extraction order.
var Fields = []Field{FieldInfoValue, FieldEmail, FieldRegion}

// Locator is one named way of finding a field on the card.
type Locator struct {
	Name     string
	Selector string
}

// LocatorTable maps each field to its candidate locators, tried in order.
type LocatorTable map[Field][]Locator

// The profile card renders as either "supplier-card active" or
// "supplier-card inactive" with different paths to the same values.
const cardRoot = selSupplierCard

// DefaultLocators covers both card layouts. A new layout is a new entry
// per field.
var DefaultLocators = LocatorTable{
	FieldInfoValue: {
		{Name: "active", Selector: cardRoot + ".active > div.profile-content.reduced > div:nth-child(2) > span.info-value"},
		{Name: "inactive", Selector: cardRoot + ".inactive > div.profile-content.reduced > ul:nth-child(1) > li > div > span.info-value"},
	},
	FieldEmail: {
		{Name: "active", Selector: cardRoot + ".active > div.profile-content.reduced > div:nth-child(3) > div > span > a"},
		{Name: "inactive", Selector: cardRoot + ".inactive > div.profile-content.reduced > div:nth-child(3) > div > span > a"},
	},
	FieldRegion: {
		{Name: "active", Selector: cardRoot + ".active > div.profile-content > ul:nth-child(4) > li:nth-child(1) > div > span:nth-child(3)"},
		{Name: "inactive", Selector: cardRoot + ".inactive > div.profile-content.reduced > ul:nth-child(4) > li:nth-child(1) > div > span:nth-child(3)"},
	},
}

// Validate checks that every field has at least one locator and that every
// selector parses.
func (t LocatorTable) Validate() error {
	for _, f := range Fields {
		locs := t[f]
		if len(locs) == 0 {
			return fmt.Errorf("locators: field %q has no candidates", f)
		}
		for _, l := range locs {
			if _, err := cascadia.Parse(l.Selector); err != nil {
				return fmt.Errorf("locators: %s/%s: %w", f, l.Name, err)
			}
		}
	}
	return nil
}
