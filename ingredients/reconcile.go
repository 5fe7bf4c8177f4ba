package ingredients

// Reconcile computes the plan that turns set into the list described by
// candidates. It performs no I/O and never fails.
//
// Persisted associations no existing candidate claims are deleted first, in
// ID order. Existing candidates are then processed in submission order
// against the surviving state: a claim on an unknown ID, or on an ID already
// evicted, is ignored; a claim whose ingredient is held by another survivor
// evicts the claimed association; otherwise the association is updated if
// its fields change. When several rows claim one ID the last one sets its
// values. New candidates are created unless their ingredient is already
// held, in which case they are absorbed.
//
// Every prefix of deletions, updates, creations keeps at most one
// association per ingredient, so the plan can be applied statement by
// statement under a unique constraint. An association re-targeted by a
// later claim may therefore keep an earlier update as an intermediate step
// when another association takes over the ingredient it vacated.
func Reconcile(set PersistedSet, candidates []Candidate) Plan {
	r := newReconciler(set, candidates)
	r.deleteOrphans()
	r.processExisting()
	r.processNew()
	return r.plan
}

type reconciler struct {
	set        PersistedSet
	candidates []Candidate
	plan       Plan

	persisted map[AssociationID]Association
	claimed   map[AssociationID]struct{}

	// Simulated state after the operations scheduled so far.
	holder  map[IngredientRef]AssociationID
	target  map[AssociationID]IngredientRef
	evicted map[AssociationID]struct{}
	created map[IngredientRef]struct{}
}

func newReconciler(set PersistedSet, candidates []Candidate) *reconciler {
	r := &reconciler{
		set:        set,
		candidates: candidates,
		persisted:  make(map[AssociationID]Association, len(set.Associations)),
		claimed:    make(map[AssociationID]struct{}, len(candidates)),
		holder:     make(map[IngredientRef]AssociationID, len(set.Associations)),
		target:     make(map[AssociationID]IngredientRef, len(set.Associations)),
		evicted:    make(map[AssociationID]struct{}),
		created:    make(map[IngredientRef]struct{}),
	}

	for _, a := range set.Associations {
		r.persisted[a.ID] = a
	}
	for _, c := range candidates {
		if id, ok := c.Row.AssociationID(); ok {
			if _, known := r.persisted[id]; known {
				r.claimed[id] = struct{}{}
			}
		}
	}
	return r
}

func (r *reconciler) deleteOrphans() {
	for _, a := range r.set.Associations {
		if _, ok := r.claimed[a.ID]; !ok {
			r.plan.Deletions = append(r.plan.Deletions, a.ID)
			r.evicted[a.ID] = struct{}{}
			continue
		}
		r.hold(a.ID, a.Ingredient)
	}
}

func (r *reconciler) processExisting() {
	for i, c := range r.candidates {
		id, ok := c.Row.AssociationID()
		if !ok {
			continue
		}

		prev, known := r.persisted[id]
		if !known {
			r.ignore(i, c, IgnoredDangling)
			continue
		}
		if _, gone := r.evicted[id]; gone {
			r.ignore(i, c, IgnoredDuplicateClaim)
			continue
		}

		r.release(id)
		if _, held := r.holder[c.Ingredient]; held {
			r.dropUpdates(id)
			r.evicted[id] = struct{}{}
			r.plan.Deletions = append(r.plan.Deletions, id)
			r.ignore(i, c, IgnoredCollision)
			continue
		}

		r.hold(id, c.Ingredient)
		r.retarget(id, prev.Fields, c.Fields)
	}
}

// retarget makes f the final value of association id, which was persisted
// as prev. Earlier updates of id are kept only while another association
// takes the ingredient they vacate later in the sequence.
func (r *reconciler) retarget(id AssociationID, prev, f Fields) {
	updates := make([]Update, 0, len(r.plan.Updates)+1)
	from := prev.Ingredient
	last := -1
	for i, u := range r.plan.Updates {
		if u.ID != id {
			updates = append(updates, u)
			continue
		}
		if r.takenAfter(i, id, from) {
			updates = append(updates, u)
			last = len(updates) - 1
			from = u.Ingredient
		}
	}

	switch {
	case last >= 0 && updates[last].Ingredient == f.Ingredient:
		updates[last].Fields = f
	case last >= 0 || f != prev:
		updates = append(updates, Update{ID: id, Fields: f})
	}
	r.plan.Updates = updates
}

// takenAfter reports whether an update scheduled after position pos moves
// an association other than id onto ref.
func (r *reconciler) takenAfter(pos int, id AssociationID, ref IngredientRef) bool {
	for _, u := range r.plan.Updates[pos+1:] {
		if u.ID != id && u.Ingredient == ref {
			return true
		}
	}
	return false
}

func (r *reconciler) dropUpdates(id AssociationID) {
	updates := r.plan.Updates[:0]
	for _, u := range r.plan.Updates {
		if u.ID != id {
			updates = append(updates, u)
		}
	}
	r.plan.Updates = updates
}

func (r *reconciler) processNew() {
	for i, c := range r.candidates {
		if !c.Row.IsNew() {
			continue
		}
		_, held := r.holder[c.Ingredient]
		_, pending := r.created[c.Ingredient]
		if held || pending {
			r.ignore(i, c, IgnoredAbsorbed)
			continue
		}
		r.created[c.Ingredient] = struct{}{}
		r.plan.Creations = append(r.plan.Creations, c.Fields)
	}
}

func (r *reconciler) hold(id AssociationID, ref IngredientRef) {
	r.holder[ref] = id
	r.target[id] = ref
}

// release drops id's hold on its current ingredient.
func (r *reconciler) release(id AssociationID) {
	ref, ok := r.target[id]
	if !ok {
		return
	}
	if r.holder[ref] == id {
		delete(r.holder, ref)
	}
	delete(r.target, id)
}

func (r *reconciler) ignore(index int, c Candidate, reason IgnoreReason) {
	r.plan.Ignored = append(r.plan.Ignored, IgnoredRow{
		Index:  index,
		Row:    c.Row.String(),
		Reason: reason,
	})
}
