package models

import "sort"

// RegionAll selects every record.
const RegionAll = "ALL"

// districtNames maps district codes to display names.
var districtNames = map[string]string{
	"610102": "新城区",
	"610103": "碑林区",
	"610104": "莲湖区",
	"610111": "灞桥区",
	"610112": "未央区",
	"610113": "雁塔区",
	"610114": "阎良区",
	"610115": "临潼区",
	"610116": "长安区",
	"610117": "高陵区",
	"610118": "鄠邑区",
	"610122": "蓝田县",
	"610124": "周至县",
	"610191": "高新区",
	"610192": "国际港务区",
	"610193": "西咸新区",
}

// DistrictName returns the display name of a district code, or the code
// itself when it is unknown.
func DistrictName(code string) string {
	if n, ok := districtNames[code]; ok {
		return n
	}
	return code
}

// KnownDistrict reports whether code is in the district table.
func KnownDistrict(code string) bool {
	_, ok := districtNames[code]
	return ok
}

// ValidRegion reports whether sel is ALL or a known district code.
func ValidRegion(sel string) bool {
	return sel == RegionAll || KnownDistrict(sel)
}

// DistrictCodes lists known district codes in ascending order.
func DistrictCodes() []string {
	out := make([]string, 0, len(districtNames))
	for c := range districtNames {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
