package models

import (
	"fmt"

	"RegionFeed/pkg/util"
)

// Wire field names of a settlement record.
const (
	FieldRegionCode    = "regionCode"
	FieldStreetName    = "streetName"
	FieldCategoryName  = "categoryName"
	FieldSettledAmount = "settledAmount"
	FieldSettledCount  = "settledCount"
)

// DistrictCodeLen is the number of leading regionCode characters naming a district.
const DistrictCodeLen = 6

// Row is an unvalidated candidate record keyed by wire field name.
type Row map[string]any

// Record is one aggregated settlement row.
type Record struct {
	RegionCode    string  `json:"regionCode"`
	StreetName    string  `json:"streetName"`
	CategoryName  string  `json:"categoryName"`
	SettledAmount Numeric `json:"settledAmount"`
	SettledCount  Numeric `json:"settledCount"`
}

// DistrictCode returns the district part of the region code.
func (r Record) DistrictCode() string {
	return util.Prefix(r.RegionCode, DistrictCodeLen)
}

// RecordFromRow converts a row that already passed validation.
func RecordFromRow(row Row) Record {
	return Record{
		RegionCode:    text(row[FieldRegionCode]),
		StreetName:    text(row[FieldStreetName]),
		CategoryName:  text(row[FieldCategoryName]),
		SettledAmount: NumericOf(row[FieldSettledAmount]),
		SettledCount:  NumericOf(row[FieldSettledCount]),
	}
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
