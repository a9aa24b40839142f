package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric is a quantity that may arrive either as a JSON number or as a
// numeric string (DECIMAL columns are commonly returned as text). The source
// form is preserved so re-encoding does not alter the wire value; conversions
// treat anything unparsable as zero.
type Numeric struct {
	raw any // nil, string, json.Number, float64, int64
}

// NumericOf wraps a decoded or scanned value.
func NumericOf(v any) Numeric {
	switch x := v.(type) {
	case nil:
		return Numeric{}
	case Numeric:
		return x
	case string, json.Number, float64, int64:
		return Numeric{raw: x}
	case []byte:
		return Numeric{raw: string(x)}
	case int:
		return Numeric{raw: int64(x)}
	case int32:
		return Numeric{raw: int64(x)}
	case uint64:
		return Numeric{raw: json.Number(strconv.FormatUint(x, 10))}
	case uint32:
		return Numeric{raw: int64(x)}
	case float32:
		return Numeric{raw: float64(x)}
	case decimal.Decimal:
		return Numeric{raw: json.Number(x.String())}
	case fmt.Stringer:
		return Numeric{raw: x.String()}
	default:
		return Numeric{raw: fmt.Sprint(x)}
	}
}

// Raw returns the preserved source value.
func (n Numeric) Raw() any { return n.raw }

// Decimal parses the value; invalid or missing values yield zero.
func (n Numeric) Decimal() decimal.Decimal {
	d, ok := n.decimal()
	if !ok {
		return decimal.Zero
	}
	return d
}

// Valid reports whether the value parses as a number.
func (n Numeric) Valid() bool {
	_, ok := n.decimal()
	return ok
}

func (n Numeric) decimal() (decimal.Decimal, bool) {
	switch x := n.raw.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case int64:
		return decimal.NewFromInt(x), true
	default:
		return decimal.Zero, false
	}
}

// Float is Decimal as a float64.
func (n Numeric) Float() float64 {
	f, _ := n.Decimal().Float64()
	return f
}

// Int truncates toward zero; invalid values yield zero.
func (n Numeric) Int() int64 {
	return n.Decimal().IntPart()
}

func (n Numeric) String() string {
	switch x := n.raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	switch x := n.raw.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return json.Marshal(x)
	case json.Number:
		if x == "" {
			return []byte("null"), nil
		}
		return []byte(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(x)
	default:
		return json.Marshal(x)
	}
}

func (n *Numeric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		n.raw = nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.raw = s
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		n.raw = json.Number(b)
	default:
		// booleans, objects and arrays are kept verbatim and count as zero
		n.raw = string(b)
	}
	return nil
}
