package ingredients

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assoc(id AssociationID, ref IngredientRef, qty float64, unit Unit) Association {
	return Association{ID: id, Fields: Fields{Ingredient: ref, Quantity: qty, Unit: unit}}
}

func existing(id AssociationID, ref IngredientRef, qty float64, unit Unit) Candidate {
	return Candidate{Row: ExistingRow(id), Fields: Fields{Ingredient: ref, Quantity: qty, Unit: unit}}
}

func fresh(token string, ref IngredientRef, qty float64, unit Unit) Candidate {
	return Candidate{Row: NewRow(token), Fields: Fields{Ingredient: ref, Quantity: qty, Unit: unit}}
}

func set(associations ...Association) PersistedSet {
	return NewPersistedSet(1, 0, associations)
}

// applyPlan executes plan against set the way a gateway with a per-statement
// unique constraint would, failing the test on any transient violation.
func applyPlan(t *testing.T, s PersistedSet, plan Plan) PersistedSet {
	t.Helper()

	rows := make(map[AssociationID]Fields, len(s.Associations))
	for _, a := range s.Associations {
		rows[a.ID] = a.Fields
	}
	checkUnique := func(step string) {
		seen := make(map[IngredientRef]AssociationID)
		for id, f := range rows {
			if other, dup := seen[f.Ingredient]; dup {
				t.Fatalf("%s: associations %d and %d both hold ingredient %d", step, other, id, f.Ingredient)
			}
			seen[f.Ingredient] = id
		}
	}

	for _, id := range plan.Deletions {
		_, ok := rows[id]
		require.True(t, ok, "delete of missing association %d", id)
		delete(rows, id)
	}
	for _, u := range plan.Updates {
		_, ok := rows[u.ID]
		require.True(t, ok, "update of missing association %d", u.ID)
		rows[u.ID] = u.Fields
		checkUnique("update")
	}
	next := AssociationID(1000)
	for _, a := range s.Associations {
		if a.ID >= next {
			next = a.ID + 1
		}
	}
	for _, c := range plan.Creations {
		rows[next] = c
		next++
		checkUnique("create")
	}

	out := make([]Association, 0, len(rows))
	for id, f := range rows {
		out = append(out, Association{ID: id, Fields: f})
	}
	return NewPersistedSet(s.RecipeID, s.Version+1, out)
}

func TestReconcile_EmptySubmissionDeletesEverything(t *testing.T) {
	persisted := set(assoc(3, 5, 1, UnitCup), assoc(1, 7, 2, UnitGram))

	plan := Reconcile(persisted, nil)

	assert.Equal(t, []AssociationID{1, 3}, plan.Deletions)
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Creations)
}

func TestReconcile_EmptyEverything(t *testing.T) {
	plan := Reconcile(set(), nil)
	assert.True(t, plan.IsEmpty())
	assert.Zero(t, plan.Operations())
}

func TestReconcile_CollisionEvictsClaimedAssociation(t *testing.T) {
	persisted := set(assoc(1, 5, 2, UnitGram), assoc(2, 7, 3, UnitCup))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 5, 2, UnitGram),
		existing(2, 5, 1, UnitPiece),
	})

	assert.Equal(t, []AssociationID{2}, plan.Deletions)
	assert.Empty(t, plan.Updates, "P1 is unchanged")
	assert.Empty(t, plan.Creations)
	require.Len(t, plan.Ignored, 1)
	assert.Equal(t, IgnoredRow{Index: 1, Row: "2", Reason: IgnoredCollision}, plan.Ignored[0])
}

func TestReconcile_OrphanReleasesIngredientBeforeCollisionCheck(t *testing.T) {
	persisted := set(assoc(1, 5, 2, UnitGram), assoc(2, 7, 3, UnitCup))

	plan := Reconcile(persisted, []Candidate{existing(2, 5, 1, UnitPiece)})

	assert.Equal(t, []AssociationID{1}, plan.Deletions, "P1 is an orphan")
	assert.Equal(t, []Update{{ID: 2, Fields: Fields{Ingredient: 5, Quantity: 1, Unit: UnitPiece}}}, plan.Updates)
	assert.Empty(t, plan.Creations)
}

func TestReconcile_DuplicateNewRowsAreAbsorbed(t *testing.T) {
	plan := Reconcile(set(), []Candidate{
		fresh("x1", 5, 2, UnitGram),
		fresh("x2", 5, 3, UnitCup),
	})

	assert.Empty(t, plan.Deletions)
	assert.Empty(t, plan.Updates)
	assert.Equal(t, []Fields{{Ingredient: 5, Quantity: 2, Unit: UnitGram}}, plan.Creations, "first one wins, no merge")
	require.Len(t, plan.Ignored, 1)
	assert.Equal(t, IgnoredAbsorbed, plan.Ignored[0].Reason)
	assert.Equal(t, "x2", plan.Ignored[0].Row)
}

func TestReconcile_NewRowMatchingSurvivorIsAbsorbed(t *testing.T) {
	persisted := set(assoc(1, 5, 2, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 5, 2, UnitGram),
		fresh("x1", 5, 9, UnitKilogram),
	})

	assert.True(t, plan.IsEmpty())
	require.Len(t, plan.Ignored, 1)
	assert.Equal(t, IgnoredAbsorbed, plan.Ignored[0].Reason)
}

func TestReconcile_NewRowTakesIngredientOfOrphan(t *testing.T) {
	persisted := set(assoc(1, 5, 2, UnitGram))

	plan := Reconcile(persisted, []Candidate{fresh("x1", 5, 4, UnitGram)})

	assert.Equal(t, []AssociationID{1}, plan.Deletions)
	assert.Equal(t, []Fields{{Ingredient: 5, Quantity: 4, Unit: UnitGram}}, plan.Creations)
}

func TestReconcile_NewRowTakesIngredientReleasedByUpdate(t *testing.T) {
	persisted := set(assoc(1, 5, 2, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 6, 2, UnitGram),
		fresh("x1", 5, 1, UnitCup),
	})

	assert.Empty(t, plan.Deletions)
	assert.Equal(t, []Update{{ID: 1, Fields: Fields{Ingredient: 6, Quantity: 2, Unit: UnitGram}}}, plan.Updates)
	assert.Equal(t, []Fields{{Ingredient: 5, Quantity: 1, Unit: UnitCup}}, plan.Creations)
}

func TestReconcile_DanglingClaimIsDropped(t *testing.T) {
	persisted := set(assoc(1, 5, 2, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 5, 2, UnitGram),
		existing(999, 7, 1, UnitCup),
	})

	assert.True(t, plan.IsEmpty(), "no operation and no error for the unknown id")
	require.Len(t, plan.Ignored, 1)
	assert.Equal(t, IgnoredRow{Index: 1, Row: "999", Reason: IgnoredDangling}, plan.Ignored[0])
}

func TestReconcile_TwoExistingClaimsOnOneIngredient(t *testing.T) {
	// A holds 5, B holds 7; both are resubmitted pointing at 5.
	persisted := set(assoc(10, 5, 1, UnitGram), assoc(20, 7, 1, UnitGram))

	t.Run("holder first", func(t *testing.T) {
		plan := Reconcile(persisted, []Candidate{
			existing(10, 5, 2, UnitGram),
			existing(20, 5, 3, UnitGram),
		})
		assert.Equal(t, []AssociationID{20}, plan.Deletions)
		assert.Equal(t, []Update{{ID: 10, Fields: Fields{Ingredient: 5, Quantity: 2, Unit: UnitGram}}}, plan.Updates)
	})

	t.Run("non-holder first", func(t *testing.T) {
		plan := Reconcile(persisted, []Candidate{
			existing(20, 5, 3, UnitGram),
			existing(10, 5, 2, UnitGram),
		})
		// 20 collides with 10, which still holds 5; 10 is then the holder itself.
		assert.Equal(t, []AssociationID{20}, plan.Deletions)
		assert.Equal(t, []Update{{ID: 10, Fields: Fields{Ingredient: 5, Quantity: 2, Unit: UnitGram}}}, plan.Updates)
	})
}

func TestReconcile_SwapLosesTheFirstClaim(t *testing.T) {
	persisted := set(assoc(1, 5, 1, UnitGram), assoc(2, 7, 1, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 7, 1, UnitGram),
		existing(2, 5, 1, UnitGram),
	})

	// 1 collides with 2's ingredient and is evicted, freeing 5 for 2.
	assert.Equal(t, []AssociationID{1}, plan.Deletions)
	assert.Equal(t, []Update{{ID: 2, Fields: Fields{Ingredient: 5, Quantity: 1, Unit: UnitGram}}}, plan.Updates)

	after := applyPlan(t, persisted, plan)
	assert.Len(t, after.Associations, 1)
}

func TestReconcile_RepeatedClaimLastWins(t *testing.T) {
	persisted := set(assoc(1, 5, 1, UnitGram))

	t.Run("same ingredient", func(t *testing.T) {
		plan := Reconcile(persisted, []Candidate{
			existing(1, 5, 2, UnitGram),
			existing(1, 5, 3, UnitCup),
		})
		assert.Empty(t, plan.Deletions)
		assert.Equal(t, []Update{{ID: 1, Fields: Fields{Ingredient: 5, Quantity: 3, Unit: UnitCup}}}, plan.Updates)
		assert.Empty(t, plan.Ignored)
	})

	t.Run("other ingredient", func(t *testing.T) {
		plan := Reconcile(persisted, []Candidate{
			existing(1, 6, 2, UnitCup),
			existing(1, 8, 3, UnitPinch),
		})
		assert.Empty(t, plan.Deletions)
		assert.Equal(t, []Update{{ID: 1, Fields: Fields{Ingredient: 8, Quantity: 3, Unit: UnitPinch}}}, plan.Updates)
	})

	t.Run("back to the stored row", func(t *testing.T) {
		plan := Reconcile(persisted, []Candidate{
			existing(1, 6, 2, UnitCup),
			existing(1, 5, 1, UnitGram),
		})
		assert.True(t, plan.IsEmpty(), plan.String())
	})

	t.Run("released ingredient goes to a new row", func(t *testing.T) {
		plan := Reconcile(persisted, []Candidate{
			existing(1, 6, 2, UnitCup),
			fresh("x1", 5, 1, UnitPiece),
			existing(1, 7, 1, UnitCup),
		})
		assert.Equal(t, []Update{{ID: 1, Fields: Fields{Ingredient: 7, Quantity: 1, Unit: UnitCup}}}, plan.Updates)
		assert.Equal(t, []Fields{{Ingredient: 5, Quantity: 1, Unit: UnitPiece}}, plan.Creations)
		applyPlan(t, persisted, plan)
	})
}

func TestReconcile_RepeatedClaimKeepsVacatingStep(t *testing.T) {
	// 1 leaves 5 for 7, 2 takes 5, then 1 is moved onto 6 which 2 left.
	persisted := set(assoc(1, 5, 1, UnitGram), assoc(2, 6, 1, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 7, 1, UnitGram),
		existing(2, 5, 1, UnitGram),
		existing(1, 6, 4, UnitGram),
	})

	assert.Empty(t, plan.Deletions)
	assert.Equal(t, []Update{
		{ID: 1, Fields: Fields{Ingredient: 7, Quantity: 1, Unit: UnitGram}},
		{ID: 2, Fields: Fields{Ingredient: 5, Quantity: 1, Unit: UnitGram}},
		{ID: 1, Fields: Fields{Ingredient: 6, Quantity: 4, Unit: UnitGram}},
	}, plan.Updates)

	after := applyPlan(t, persisted, plan)
	a, ok := after.Find(1)
	require.True(t, ok)
	assert.Equal(t, Fields{Ingredient: 6, Quantity: 4, Unit: UnitGram}, a.Fields)
}

func TestReconcile_RepeatedClaimCanCollide(t *testing.T) {
	persisted := set(assoc(1, 5, 1, UnitGram), assoc(2, 7, 1, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 6, 1, UnitGram),
		existing(2, 7, 1, UnitGram),
		existing(1, 7, 2, UnitGram),
	})

	assert.Equal(t, []AssociationID{1}, plan.Deletions)
	assert.Empty(t, plan.Updates, "the pending update of the evicted row is dropped")
	require.Len(t, plan.Ignored, 1)
	assert.Equal(t, IgnoredRow{Index: 2, Row: "1", Reason: IgnoredCollision}, plan.Ignored[0])
}

func TestReconcile_ClaimAfterEvictionIsIgnored(t *testing.T) {
	persisted := set(assoc(1, 5, 1, UnitGram), assoc(2, 7, 1, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(2, 7, 1, UnitGram),
		existing(1, 7, 1, UnitGram),
		existing(1, 5, 3, UnitGram),
	})

	assert.Equal(t, []AssociationID{1}, plan.Deletions)
	assert.Empty(t, plan.Updates)
	require.Len(t, plan.Ignored, 2)
	assert.Equal(t, IgnoredCollision, plan.Ignored[0].Reason)
	assert.Equal(t, IgnoredRow{Index: 2, Row: "1", Reason: IgnoredDuplicateClaim}, plan.Ignored[1])
}

func TestReconcile_UnchangedRowsProduceNoUpdate(t *testing.T) {
	persisted := set(assoc(1, 5, 1.5, UnitCup), assoc(2, 6, 2, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 5, 1.5, UnitCup),
		existing(2, 6, 2.5, UnitGram),
	})

	assert.Empty(t, plan.Deletions)
	assert.Equal(t, []Update{{ID: 2, Fields: Fields{Ingredient: 6, Quantity: 2.5, Unit: UnitGram}}}, plan.Updates)
}

func TestReconcile_ChainedRetargetingIsOrdered(t *testing.T) {
	// 1: 5->6 and 2: 6->7. Processing 1 first collides with 2, which still holds 6.
	persisted := set(assoc(1, 5, 1, UnitGram), assoc(2, 6, 1, UnitGram))

	plan := Reconcile(persisted, []Candidate{
		existing(2, 7, 1, UnitGram),
		existing(1, 6, 1, UnitGram),
	})

	// 2 moves off 6 first, so 1 can take it.
	assert.Empty(t, plan.Deletions)
	require.Len(t, plan.Updates, 2)
	assert.Equal(t, AssociationID(2), plan.Updates[0].ID)
	assert.Equal(t, AssociationID(1), plan.Updates[1].ID)

	applyPlan(t, persisted, plan)
}

func TestReconcile_ExportedRowsAreIdempotent(t *testing.T) {
	persisted := set(assoc(1, 5, 1, UnitGram), assoc(2, 6, 0.25, UnitCup))

	plan := Reconcile(persisted, []Candidate{
		existing(1, 5, 3, UnitGram),
		fresh("x1", 9, 1, UnitPiece),
	})
	after := applyPlan(t, persisted, plan)

	candidates, err := NewValidator(catalogLookup{5: "salt", 6: "flour", 9: "egg"}).
		Validate(t.Context(), RowsFromSet(after))
	require.NoError(t, err)

	again := Reconcile(after, candidates)
	assert.True(t, again.IsEmpty(), again.String())
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	persisted := set(assoc(1, 5, 1, UnitGram), assoc(2, 6, 1, UnitGram))
	candidates := []Candidate{existing(2, 5, 1, UnitGram)}

	before := append([]Association(nil), persisted.Associations...)
	Reconcile(persisted, candidates)

	assert.Equal(t, before, persisted.Associations)
	assert.Equal(t, []Candidate{existing(2, 5, 1, UnitGram)}, candidates)
}

// Random submissions against random persisted sets: the plan must apply
// without a transient duplicate, delete every unclaimed row, leave one row
// per ingredient and reach a fixed point on resubmission.
func TestReconcile_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(20260419))
	units := Units

	for iter := 0; iter < 500; iter++ {
		var persistedRows []Association
		used := make(map[IngredientRef]bool)
		size := AssociationID(rng.Intn(8))
		for id := AssociationID(1); id <= size; id++ {
			ref := IngredientRef(rng.Intn(10) + 1)
			if used[ref] {
				continue
			}
			used[ref] = true
			persistedRows = append(persistedRows, assoc(id, ref, float64(rng.Intn(5)), units[rng.Intn(len(units))]))
		}
		persisted := NewPersistedSet(1, int64(iter), persistedRows)

		var candidates []Candidate
		for n := rng.Intn(10); n > 0; n-- {
			ref := IngredientRef(rng.Intn(10) + 1)
			qty := float64(rng.Intn(5))
			unit := units[rng.Intn(len(units))]
			if rng.Intn(3) == 0 {
				candidates = append(candidates, fresh("x", ref, qty, unit))
			} else {
				candidates = append(candidates, existing(AssociationID(rng.Intn(10)), ref, qty, unit))
			}
		}

		plan := Reconcile(persisted, candidates)

		claimed := make(map[AssociationID]bool)
		for _, c := range candidates {
			if id, ok := c.Row.AssociationID(); ok {
				claimed[id] = true
			}
		}
		deleted := make(map[AssociationID]bool)
		for _, id := range plan.Deletions {
			require.False(t, deleted[id], "association %d deleted twice", id)
			deleted[id] = true
		}
		for _, a := range persisted.Associations {
			if !claimed[a.ID] {
				require.True(t, deleted[a.ID], "orphan %d not deleted (iteration %d)", a.ID, iter)
			}
		}

		after := applyPlan(t, persisted, plan)

		// Resubmitting reaches a fixed point when every row claims its own
		// association; repeated claims pass through intermediate values.
		distinct := true
		seen := make(map[AssociationID]bool)
		for _, c := range candidates {
			id, ok := c.Row.AssociationID()
			if !ok || seen[id] {
				distinct = false
				break
			}
			seen[id] = true
		}
		if distinct {
			again := Reconcile(after, candidates)
			require.True(t, again.IsEmpty(), "iteration %d: second run produced %s", iter, again)
		}
	}
}

func TestPersistedSetFind(t *testing.T) {
	s := set(assoc(9, 1, 1, UnitCup), assoc(3, 2, 1, UnitCup))

	assert.Equal(t, AssociationID(3), s.Associations[0].ID, "sorted by id")

	a, ok := s.Find(9)
	require.True(t, ok)
	assert.Equal(t, IngredientRef(1), a.Ingredient)

	_, ok = s.Find(4)
	assert.False(t, ok)
}
