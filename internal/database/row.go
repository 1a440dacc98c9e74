package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// NormalizeRows converts driver-native values in raw rows into values that
// serialize losslessly. Each input map is copied; raw is left untouched.
// The returned slice is always non-nil.
func NormalizeRows(raw []map[string]any) []QueryRow {
	out := make([]QueryRow, 0, len(raw))
	for _, r := range raw {
		row := make(QueryRow, len(r))
		for k, v := range r {
			row[k] = NormalizeValue(v)
		}
		out = append(out, row)
	}
	return out
}

// NormalizeValue maps one driver value to a serialization-safe value.
//
// The set of recognized native types is closed: only unique identifiers are
// converted (to canonical 8-4-4-4-12 text). Any other value, including nil,
// numbers, booleans, strings and time values, passes through unchanged. A new
// native scalar that does not serialize cleanly must be added here.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case [16]byte:
		// pgx decodes uuid columns to [16]byte via rows.Values.
		return uuid.UUID(x).String()
	case uuid.UUID:
		return x.String()
	case pgtype.UUID:
		if !x.Valid {
			return nil
		}
		return uuid.UUID(x.Bytes).String()
	case []any:
		// uuid[] and other arrays: normalize element-wise.
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = NormalizeValue(e)
		}
		return out
	default:
		return v
	}
}
