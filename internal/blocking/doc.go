// Package blocking computes, for a single document, the set of reasons
// that currently block editorial work.
//
// The rules form a five-gate ordered cascade. Each gate models one
// sequential editorial stage and owns a role set; the first gate whose
// role set matches the document's active or pending assignments is the
// only gate evaluated, and its accumulated reasons are the result even
// when empty. Later-stage holds are irrelevant until that stage is
// reached. A document with no matching gate is never blocked.
//
// Evaluation is pure: it operates on a DocumentFacts snapshot assembled
// by the caller (inside the reconciler's row lock) and touches no
// storage. It is total for well-formed facts and never fails.
package blocking
