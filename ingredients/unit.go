package ingredients

// Unit is the measure a quantity is expressed in.
type Unit string

const (
	UnitGram       Unit = "gram"
	UnitKilogram   Unit = "kilogram"
	UnitLiter      Unit = "liter"
	UnitMilliliter Unit = "milliliter"
	UnitPiece      Unit = "piece"
	UnitPinch      Unit = "pinch"
	UnitTeaspoon   Unit = "teaspoon"
	UnitTablespoon Unit = "tablespoon"
	UnitCup        Unit = "cup"
)

// Units lists every accepted unit in display order.
var Units = []Unit{
	UnitGram,
	UnitKilogram,
	UnitLiter,
	UnitMilliliter,
	UnitPiece,
	UnitPinch,
	UnitTeaspoon,
	UnitTablespoon,
	UnitCup,
}

// ParseUnit matches s exactly against the accepted units.
func ParseUnit(s string) (Unit, bool) {
	u := Unit(s)
	return u, u.Valid()
}

// Valid reports whether u is one of Units.
func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}
