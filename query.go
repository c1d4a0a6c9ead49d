package multiq

import (
	"fmt"
	"strconv"

	"github.com/spf13/cast"
)

// Op is an operator comparing a document field against a literal value
type Op string

const (
	// OpEq matches on equality
	OpEq Op = "=="
	// OpGt matches on greater than
	OpGt Op = ">"
	// OpGte matches on greater than or equal to
	OpGte Op = ">="
	// OpLt matches on less than
	OpLt Op = "<"
	// OpLte matches on less than or equal to
	OpLte Op = "<="
)

// Filter is a field-level condition applied to each document in a query.
// Operators are validated when the query runs, not when the filter is added.
type Filter struct {
	// Field is the document field to compare
	Field string `json:"field"`
	// Op is the comparison operator - one of ==, >, >=, <, <=
	Op Op `json:"op"`
	// Value is the literal value to compare against - a string or a number
	Value any `json:"value"`
}

// Direction indicates whether results are sorted in ascending or descending order
type Direction string

const (
	// ASC sorts in ascending order
	ASC Direction = "ASC"
	// DESC sorts in descending order
	DESC Direction = "DESC"
)

// OrderBy sorts query results by a field in a direction. The comparison is
// numeric - ordering by a non-numeric field is unsupported.
type OrderBy struct {
	// Field is the field to sort on
	Field string `json:"field"`
	// Direction is the sort direction - anything other than DESC sorts ascending
	Direction Direction `json:"direction"`
}

// formatLiteral renders a filter value for diagnostics: strings quoted, numbers bare
func formatLiteral(value any) string {
	switch value := value.(type) {
	case string:
		return strconv.Quote(value)
	case []byte:
		return strconv.Quote(string(value))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return cast.ToString(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %s", f.Field, f.Op, formatLiteral(f.Value))
}
