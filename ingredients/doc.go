// Package ingredients reconciles a recipe's ingredient list.
//
// A caller submits the complete desired list as raw rows. Rows either claim
// an existing association by id or carry a caller-local token marking them
// as new. The pipeline is:
//
//	raw rows -> Validator -> []Candidate -> Reconcile -> Plan -> Gateway.Apply
//
// Reconcile is pure: given the persisted set and the candidates it computes
// the deletions, updates and creations that turn one into the other while
// keeping at most one association per ingredient. Service drives the
// pipeline and retries from validation when Apply reports a conflict.
package ingredients
