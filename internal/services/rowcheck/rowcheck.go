// Package rowcheck decides whether a candidate row may become a Record.
package rowcheck

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"RegionFeed/internal/domain/models"
)

// ErrRejected wraps every validation failure.
var ErrRejected = errors.New("row rejected")

var (
	validate = validator.New()

	// Required fields use truthiness: absent, null, "" and 0 all fail.
	rules = map[string]interface{}{
		models.FieldRegionCode:   "required,min=6",
		models.FieldStreetName:   "required",
		models.FieldCategoryName: "required",
	}
)

// Check returns nil for an acceptable row, or an error wrapping ErrRejected
// naming the first failing fields.
func Check(row models.Row) error {
	if row == nil {
		return fmt.Errorf("%w: nil row", ErrRejected)
	}
	if v, ok := row[models.FieldRegionCode]; ok && v != nil {
		if _, isStr := v.(string); !isStr {
			return fmt.Errorf("%w: %s is %T, want string", ErrRejected, models.FieldRegionCode, v)
		}
	}
	errs := validate.ValidateMap(row, rules)
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: invalid %s", ErrRejected, strings.Join(fields, ", "))
}

// Valid reports whether Check accepts the row.
func Valid(row models.Row) bool {
	return Check(row) == nil
}

// Result is the outcome of filtering a batch.
type Result struct {
	Records  []models.Record
	Rejected int
	// Reasons holds the first few rejection errors, for logging.
	Reasons []error
}

const maxReasons = 5

// Filter keeps valid rows in order and converts them. Rejections never abort
// the batch.
func Filter(rows []models.Row) Result {
	res := Result{Records: make([]models.Record, 0, len(rows))}
	for _, row := range rows {
		if err := Check(row); err != nil {
			res.Rejected++
			if len(res.Reasons) < maxReasons {
				res.Reasons = append(res.Reasons, err)
			}
			continue
		}
		res.Records = append(res.Records, models.RecordFromRow(row))
	}
	return res
}
