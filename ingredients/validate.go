package ingredients

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/internal/util"
)

// NewRowMarker marks a row ID as a caller-local token for a new association.
// Any ID containing it is new; every other ID must be an association ID.
const NewRowMarker = "x"

// Validation failure kinds. Each matches errors.ErrInvalidRequest.
var (
	ErrInvalidRowID     = errors.Wrap(errors.ErrInvalidRequest, "invalid row id")
	ErrInvalidReference = errors.Wrap(errors.ErrInvalidRequest, "invalid ingredient reference")
	ErrInvalidQuantity  = errors.Wrap(errors.ErrInvalidRequest, "invalid quantity")
	ErrInvalidUnit      = errors.Wrap(errors.ErrInvalidRequest, "invalid unit")
)

// Submitted row field names, in the order they are checked.
const (
	FieldID         = "id"
	FieldIngredient = "ingredient"
	FieldQuantity   = "quantity"
	FieldUnit       = "unit"
)

// RawRow is one submitted ingredient line before validation.
type RawRow struct {
	ID         string `json:"id" yaml:"id"`
	Ingredient string `json:"ingredient" yaml:"ingredient"`
	Quantity   string `json:"quantity" yaml:"quantity"`
	Unit       string `json:"unit" yaml:"unit"`
}

// IngredientLookup resolves catalog entries. Implementations return an error
// matching errors.ErrNotFound for unknown references.
type IngredientLookup interface {
	LookupIngredient(ctx context.Context, ref IngredientRef) (Ingredient, error)
}

// ValidationError reports the first offending field of a submission.
type ValidationError struct {
	Index int    // zero-based row index
	Field string // one of FieldID, FieldIngredient, FieldQuantity, FieldUnit
	Value string
	Kind  error // one of the ErrInvalid* kinds
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", e.Index+1, e.Field, e.Value, e.Kind)
}

// Unwrap exposes the kind so errors.Is(err, ErrInvalidUnit) works.
func (e *ValidationError) Unwrap() error { return e.Kind }

// Validator turns raw rows into candidates, all or nothing.
type Validator struct {
	lookup IngredientLookup
}

// NewValidator creates a validator resolving references through lookup.
func NewValidator(lookup IngredientLookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate checks rows in order and returns one candidate per row, or the
// first failure. Within a row fields are checked id, ingredient, quantity,
// unit. A lookup error other than not-found is returned as is: it is a store
// failure, not a problem with the submission.
func (v *Validator) Validate(ctx context.Context, rows []RawRow) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(rows))
	resolved := make(map[IngredientRef]struct{})

	for i, raw := range rows {
		c, err := v.validateRow(ctx, i, raw, resolved)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (v *Validator) validateRow(ctx context.Context, index int, raw RawRow, resolved map[IngredientRef]struct{}) (Candidate, error) {
	fail := func(field, value string, kind error) (Candidate, error) {
		return Candidate{}, &ValidationError{Index: index, Field: field, Value: value, Kind: kind}
	}

	row, ok := ParseRowID(raw.ID)
	if !ok {
		return fail(FieldID, raw.ID, ErrInvalidRowID)
	}

	ref, ok := parseRef(raw.Ingredient)
	if !ok {
		return fail(FieldIngredient, raw.Ingredient, ErrInvalidReference)
	}
	if _, seen := resolved[ref]; !seen {
		if _, err := v.lookup.LookupIngredient(ctx, ref); err != nil {
			if errors.IsNotFoundError(err) {
				return fail(FieldIngredient, raw.Ingredient, ErrInvalidReference)
			}
			return Candidate{}, errors.Wrapf(err, "failed to look up ingredient %d", ref)
		}
		resolved[ref] = struct{}{}
	}

	quantity, ok := ParseQuantity(raw.Quantity)
	if !ok {
		return fail(FieldQuantity, raw.Quantity, ErrInvalidQuantity)
	}

	unit, ok := ParseUnit(raw.Unit)
	if !ok {
		return fail(FieldUnit, raw.Unit, ErrInvalidUnit)
	}

	return Candidate{
		Row: row,
		Fields: Fields{
			Ingredient: ref,
			Quantity:   quantity,
			Unit:       unit,
		},
	}, nil
}

// ParseRowID classifies a submitted row ID.
func ParseRowID(s string) (RowID, bool) {
	if strings.Contains(s, NewRowMarker) {
		return NewRow(s), true
	}
	if !util.IsDigits(s) {
		return RowID{}, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return RowID{}, false
	}
	return ExistingRow(AssociationID(id)), true
}

func parseRef(s string) (IngredientRef, bool) {
	if !util.IsDigits(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return IngredientRef(n), true
}

// decimalPattern is plain decimal notation with an optional exponent. Hex
// floats, digit separators and surrounding space are not quantities.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseQuantity accepts finite non-negative decimals. Negative zero becomes zero.
func ParseQuantity(s string) (float64, bool) {
	if !decimalPattern.MatchString(s) {
		return 0, false
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0, false
	}
	if q == 0 {
		q = 0
	}
	return q, true
}
