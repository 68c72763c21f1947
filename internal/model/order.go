package model

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ComparePositions orders two field positions. Two strings compare
// case-insensitively on their uppercase form; anything else compares as
// numbers when both sides convert. Pairs that are neither are unordered
// and compare equal, so a stable sort keeps their input order.
func ComparePositions(a, b interface{}) int {
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		return strings.Compare(strings.ToUpper(as), strings.ToUpper(bs))
	}

	af, aErr := cast.ToFloat64E(a)
	bf, bErr := cast.ToFloat64E(b)
	if aErr == nil && bErr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	return 0
}

// SortFieldsByPosition stably sorts fields ascending by position.
func SortFieldsByPosition(fields []FieldDef) {
	sort.SliceStable(fields, func(i, j int) bool {
		return ComparePositions(fields[i].Position, fields[j].Position) < 0
	})
}

// SortFieldsByID sorts fields by id.
func SortFieldsByID(fields []FieldDef) {
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].ID < fields[j].ID
	})
}
