// Package pages declares the editing pages the sync tooling knows about.
package pages

import (
	"sort"

	"github.com/agribenchmark/farmsync/rowsync"
)

const (
	FeedSelfProduced = "self_produced"
	FeedBought       = "bought"
)

type GeneralFarm struct {
	ID        string  `json:"id" validate:"required"`
	FarmId    string  `json:"farm_id" validate:"required,farmid"`
	FarmName  string  `json:"farm_name" validate:"max=120"`
	Country   string  `json:"country" validate:"omitempty,len=2,uppercase"`
	Year      float64 `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Hectares  float64 `json:"hectares" validate:"gte=0"`
	Employees float64 `json:"employees" validate:"gte=0"`
}

type LandUse struct {
	ID       string  `json:"id" validate:"required"`
	FarmId   string  `json:"farm_id" validate:"required,farmid"`
	Crop     string  `json:"crop"`
	AreaHa   float64 `json:"area_ha" validate:"gte=0"`
	YieldTHa float64 `json:"yield_t_ha" validate:"gte=0"`
}

type FeedPrice struct {
	ID           string  `json:"id" validate:"required"`
	FarmId       string  `json:"farm_id" validate:"required,farmid"`
	Source       string  `json:"source" validate:"oneof=self_produced bought"`
	Feed         string  `json:"feed"`
	DryMatterPct float64 `json:"dry_matter_pct" validate:"gte=0,lte=100"`
	PricePerT    float64 `json:"price_per_t" validate:"gte=0"`
}

type Labour struct {
	ID           string  `json:"id" validate:"required"`
	FarmId       string  `json:"farm_id" validate:"required,farmid"`
	Role         string  `json:"role"`
	Persons      float64 `json:"persons" validate:"gte=0"`
	HoursPerYear float64 `json:"hours_per_year" validate:"gte=0,lte=8784"`
	WagePerHour  float64 `json:"wage_per_hour" validate:"gte=0"`
}

type Liability struct {
	ID              string  `json:"id" validate:"required"`
	FarmId          string  `json:"farm_id" validate:"required,farmid"`
	Lender          string  `json:"lender"`
	Amount          float64 `json:"amount" validate:"gte=0"`
	InterestRatePct float64 `json:"interest_rate_pct" validate:"gte=0,lte=100"`
	TermYears       float64 `json:"term_years" validate:"gte=0"`
}

var registry = map[string]rowsync.Page{
	"generalfarm": {
		Name: "generalfarm",
		Path: "/generalfarm",
		Fields: []rowsync.Field{
			{Name: "farm_name", Kind: rowsync.Text},
			{Name: "country", Kind: rowsync.Text},
			{Name: "year", Kind: rowsync.Number},
			{Name: "hectares", Kind: rowsync.Number},
			{Name: "employees", Kind: rowsync.Number},
		},
		DefaultRows: 1,
		Validate:    rowsync.ValidateRows[GeneralFarm],
	},
	"landuse": {
		Name: "landuse",
		Path: "/landuse",
		Fields: []rowsync.Field{
			{Name: "crop", Kind: rowsync.Text},
			{Name: "area_ha", Kind: rowsync.Number},
			{Name: "yield_t_ha", Kind: rowsync.Number},
		},
		DefaultRows: 3,
		Validate:    rowsync.ValidateRows[LandUse],
	},
	"feedpricesdrymatter": {
		Name: "feedpricesdrymatter",
		Path: "/feedpricesdrymatter",
		Fields: []rowsync.Field{
			{Name: "feed", Kind: rowsync.Text},
			{Name: "dry_matter_pct", Kind: rowsync.Number},
			{Name: "price_per_t", Kind: rowsync.Number},
		},
		DefaultRows: 3,
		GroupBy:     "source",
		Groups:      []string{FeedSelfProduced, FeedBought},
		Validate:    rowsync.ValidateRows[FeedPrice],
	},
	"labour": {
		Name: "labour",
		Path: "/labour",
		Fields: []rowsync.Field{
			{Name: "role", Kind: rowsync.Text},
			{Name: "persons", Kind: rowsync.Number},
			{Name: "hours_per_year", Kind: rowsync.Number},
			{Name: "wage_per_hour", Kind: rowsync.Number},
		},
		DefaultRows: 2,
		Validate:    rowsync.ValidateRows[Labour],
	},
	"liabilities": {
		Name: "liabilities",
		Path: "/liabilities",
		Fields: []rowsync.Field{
			{Name: "lender", Kind: rowsync.Text},
			{Name: "amount", Kind: rowsync.Number},
			{Name: "interest_rate_pct", Kind: rowsync.Number},
			{Name: "term_years", Kind: rowsync.Number},
		},
		DefaultRows: 1,
		Validate:    rowsync.ValidateRows[Liability],
	},
}

func Lookup(name string) (rowsync.Page, bool) {
	p, ok := registry[name]
	return p, ok
}

// Names lists the registered pages alphabetically.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
