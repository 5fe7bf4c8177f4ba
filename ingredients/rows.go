package ingredients

import "strconv"

// RowsFromSet renders persisted associations as submission rows, each
// claiming its own association. Submitting the result unchanged is a no-op.
func RowsFromSet(set PersistedSet) []RawRow {
	rows := make([]RawRow, 0, len(set.Associations))
	for _, a := range set.Associations {
		rows = append(rows, RawRow{
			ID:         strconv.FormatInt(int64(a.ID), 10),
			Ingredient: strconv.FormatInt(int64(a.Ingredient), 10),
			Quantity:   strconv.FormatFloat(a.Quantity, 'f', -1, 64),
			Unit:       string(a.Unit),
		})
	}
	return rows
}
