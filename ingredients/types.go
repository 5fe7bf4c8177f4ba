package ingredients

import (
	"fmt"
	"sort"
	"strconv"
)

// RecipeID identifies a recipe.
type RecipeID int64

// IngredientRef identifies an ingredient in the catalog.
type IngredientRef int64

// AssociationID identifies a persisted recipe/ingredient association.
type AssociationID int64

// Ingredient is a catalog entry as returned by IngredientLookup.
type Ingredient struct {
	Ref  IngredientRef `json:"id" yaml:"id"`
	Name string        `json:"name" yaml:"name"`
}

// Fields is the mutable payload of an association.
type Fields struct {
	Ingredient IngredientRef `json:"ingredient_id" yaml:"ingredient"`
	Quantity   float64       `json:"quantity" yaml:"quantity"`
	Unit       Unit          `json:"unit" yaml:"unit"`
}

// Association is one persisted ingredient line of a recipe.
type Association struct {
	ID     AssociationID `json:"id" yaml:"id"`
	Fields `yaml:",inline"`
}

// PersistedSet is a recipe's associations as read in one snapshot,
// ordered by ID, together with the recipe version observed in that snapshot.
type PersistedSet struct {
	RecipeID     RecipeID
	Version      int64
	Associations []Association
}

// NewPersistedSet copies associations and sorts them by ID.
func NewPersistedSet(recipeID RecipeID, version int64, associations []Association) PersistedSet {
	sorted := make([]Association, len(associations))
	copy(sorted, associations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return PersistedSet{RecipeID: recipeID, Version: version, Associations: sorted}
}

// Find returns the association with the given ID.
func (s PersistedSet) Find(id AssociationID) (Association, bool) {
	i := sort.Search(len(s.Associations), func(i int) bool { return s.Associations[i].ID >= id })
	if i < len(s.Associations) && s.Associations[i].ID == id {
		return s.Associations[i], true
	}
	return Association{}, false
}

// RowID is the identity a submitted row carries: either the ID of an
// existing association or a caller-local token for a new one.
type RowID struct {
	existing bool
	id       AssociationID
	token    string
}

// ExistingRow returns a RowID claiming association id.
func ExistingRow(id AssociationID) RowID {
	return RowID{existing: true, id: id}
}

// NewRow returns a RowID for a row that is not persisted yet.
func NewRow(token string) RowID {
	return RowID{token: token}
}

// IsNew reports whether the row asks for a new association.
func (r RowID) IsNew() bool { return !r.existing }

// AssociationID returns the claimed association and whether there is one.
func (r RowID) AssociationID() (AssociationID, bool) { return r.id, r.existing }

// Token returns the caller-local token of a new row.
func (r RowID) Token() string { return r.token }

func (r RowID) String() string {
	if r.existing {
		return strconv.FormatInt(int64(r.id), 10)
	}
	return r.token
}

// Candidate is a validated submitted row.
type Candidate struct {
	Row RowID
	Fields
}

// Update rewrites the fields of an existing association.
type Update struct {
	ID     AssociationID `json:"id" yaml:"id"`
	Fields `yaml:",inline"`
}

// IgnoreReason says why a candidate produced no operation of its own.
type IgnoreReason string

const (
	// IgnoredDangling: the claimed association is not in the persisted set.
	IgnoredDangling IgnoreReason = "dangling"
	// IgnoredDuplicateClaim: an earlier candidate already evicted the association.
	IgnoredDuplicateClaim IgnoreReason = "duplicate_claim"
	// IgnoredCollision: another surviving association holds the ingredient,
	// so the claimed association was deleted instead.
	IgnoredCollision IgnoreReason = "collision"
	// IgnoredAbsorbed: a new row whose ingredient is already present.
	IgnoredAbsorbed IgnoreReason = "absorbed"
)

// IgnoredRow records a candidate that did not map to an update or creation.
type IgnoredRow struct {
	Index  int          `json:"index" yaml:"index"`
	Row    string       `json:"row" yaml:"row"`
	Reason IgnoreReason `json:"reason" yaml:"reason"`
}

// Plan is the set of operations turning a PersistedSet into the submitted
// list. Applied in order: deletions, updates, creations.
type Plan struct {
	Deletions []AssociationID `json:"deletions" yaml:"deletions"`
	Updates   []Update        `json:"updates" yaml:"updates"`
	Creations []Fields        `json:"creations" yaml:"creations"`

	// Ignored is diagnostic only and never applied.
	Ignored []IgnoredRow `json:"ignored,omitempty" yaml:"ignored,omitempty"`
}

// IsEmpty reports whether applying the plan would change nothing.
func (p Plan) IsEmpty() bool {
	return len(p.Deletions) == 0 && len(p.Updates) == 0 && len(p.Creations) == 0
}

// Operations returns the number of statements the plan applies.
func (p Plan) Operations() int {
	return len(p.Deletions) + len(p.Updates) + len(p.Creations)
}

func (p Plan) String() string {
	return fmt.Sprintf("plan{delete=%d update=%d create=%d ignored=%d}",
		len(p.Deletions), len(p.Updates), len(p.Creations), len(p.Ignored))
}
