// Package regionstate derives the client's filtered view of a snapshot.
package regionstate

import (
	"sort"
	"strings"
	"time"

	"RegionFeed/internal/domain/models"

	"github.com/shopspring/decimal"
)

// ViewMode selects the dashboard drill-down level.
type ViewMode string

const (
	ViewDistricts ViewMode = "districts"
	ViewStreets   ViewMode = "streets"
)

// Filter is the user's current selection.
type Filter struct {
	Region   string   `json:"region"`
	View     ViewMode `json:"view"`
	District string   `json:"district,omitempty"`
}

// DefaultFilter shows every region at district level.
func DefaultFilter() Filter {
	return Filter{Region: models.RegionAll, View: ViewDistricts}
}

// Totals are the summary figures of a record set.
type Totals struct {
	Records    int             `json:"records"`
	Categories int             `json:"categories"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int64           `json:"count"`
}

// Summary is Totals for one district or street.
type Summary struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
	Totals
}

// ViewState is everything the display layer reads. It is rebuilt as a whole
// and never modified after publication.
type ViewState struct {
	Filter     Filter                  `json:"filter"`
	Status     models.ConnectionStatus `json:"status"`
	CapturedAt time.Time               `json:"capturedAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`
	Records    []models.Record         `json:"records"`
	Totals     Totals                  `json:"totals"`
	Districts  []Summary               `json:"districts"`
	// Streets is filled when a district is selected in streets view.
	Streets []Summary `json:"streets,omitempty"`
}

// Select returns the records matching region in their original order. ALL
// and the empty string match everything; anything else matches records whose
// first six regionCode characters equal region.
func Select(records []models.Record, region string) []models.Record {
	if region == "" || region == models.RegionAll {
		out := make([]models.Record, len(records))
		copy(out, records)
		return out
	}
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if len(r.RegionCode) >= models.DistrictCodeLen && r.RegionCode[:models.DistrictCodeLen] == region {
			out = append(out, r)
		}
	}
	return out
}

// Total computes the summary figures. Unparsable amounts and counts add zero.
func Total(records []models.Record) Totals {
	t := Totals{Records: len(records), Amount: decimal.Zero}
	categories := make(map[string]struct{})
	for _, r := range records {
		if c := strings.TrimSpace(r.CategoryName); c != "" {
			categories[c] = struct{}{}
		}
		t.Amount = t.Amount.Add(r.SettledAmount.Decimal())
		t.Count += r.SettledCount.Int()
	}
	t.Categories = len(categories)
	return t
}

// Derive builds the view for records under f. It is pure.
func Derive(records []models.Record, f Filter) ViewState {
	selected := Select(records, f.Region)
	v := ViewState{
		Filter:    f,
		Records:   selected,
		Totals:    Total(selected),
		Districts: groupBy(selected, func(r models.Record) (string, string) {
			code := r.DistrictCode()
			return code, models.DistrictName(code)
		}),
	}
	if f.View == ViewStreets && f.District != "" {
		in := Select(selected, f.District)
		v.Streets = groupBy(in, func(r models.Record) (string, string) {
			return "", r.StreetName
		})
	}
	return v
}

func groupBy(records []models.Record, key func(models.Record) (code, name string)) []Summary {
	type bucket struct {
		code, name string
		recs       []models.Record
	}
	idx := make(map[string]*bucket)
	var order []string
	for _, r := range records {
		code, name := key(r)
		k := code + "\x00" + name
		b, ok := idx[k]
		if !ok {
			b = &bucket{code: code, name: name}
			idx[k] = b
			order = append(order, k)
		}
		b.recs = append(b.recs, r)
	}
	sort.SliceStable(order, func(i, j int) bool {
		bi, bj := idx[order[i]], idx[order[j]]
		if bi.code != bj.code {
			return bi.code < bj.code
		}
		return bi.name < bj.name
	})
	out := make([]Summary, 0, len(order))
	for _, k := range order {
		b := idx[k]
		out = append(out, Summary{Code: b.code, Name: b.name, Totals: Total(b.recs)})
	}
	return out
}
