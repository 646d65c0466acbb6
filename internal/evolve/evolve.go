// Package evolve decides whether a freshly inferred schema may replace a
// previously published one.
//
// The guard exists so an unattended schema-refresh run cannot silently narrow
// a live table definition (for example shrinking a VARCHAR and truncating
// future loads) just because a smaller or cleaner sample was drawn. It trades
// completeness for a simple, auditable monotonic-widening guarantee: renames
// and reorders are invisible to it, only per-column type regressions matter.
package evolve

import (
	"ddlgen/internal/schema"
)

// Verdict classifies a single old→new type transition.
type Verdict int

const (
	// Unchanged: the new type is identical to the old one.
	Unchanged Verdict = iota
	// Widened: the new type can represent a strict superset of the old
	// type's values (VARCHAR growth, INTEGER→FLOAT, DATE→TIMESTAMP).
	Widened
	// Narrowed: the new type loses precision or capacity, or the pair is
	// incomparable. Either way the replacement must be rejected.
	Narrowed
)

func (v Verdict) String() string {
	switch v {
	case Unchanged:
		return "unchanged"
	case Widened:
		return "widened"
	default:
		return "narrowed"
	}
}

// Compare orders old against next in the type lattice.
//
// The lattice is intentionally small: VARCHAR lengths order among themselves,
// INTEGER widens to FLOAT, DATE widens to TIMESTAMP. Every differing pair
// outside those chains (BOOLEAN vs VARCHAR, FLOAT vs DATE, ...) is
// incomparable and reported as Narrowed so the guard rejects it.
func Compare(old, next schema.Type) Verdict {
	if old.Kind == schema.KindVarchar && next.Kind == schema.KindVarchar {
		switch {
		case next.Length < old.Length:
			return Narrowed
		case next.Length > old.Length:
			return Widened
		default:
			return Unchanged
		}
	}

	if old == next {
		return Unchanged
	}

	switch {
	case old.Kind == schema.KindInteger && next.Kind == schema.KindFloat:
		return Widened
	case old.Kind == schema.KindDate && next.Kind == schema.KindTimestamp:
		return Widened
	default:
		return Narrowed
	}
}

// ShouldReplace reports whether newSchema may replace oldSchema.
//
// Rules, in order:
//   - no old schema at all: replace trivially
//   - no column names shared between old and new: replace (nothing to regress)
//   - any shared column that narrowed: keep old, unconditionally
//   - otherwise replace only if at least one shared column strictly widened;
//     a schema identical on every shared column is a no-op, not a replacement
//
// Columns present in only one schema never affect the verdict: additions and
// removals are not evolution violations. Consequently a schema that only adds
// columns, with every shared column unchanged, is still rejected.
func ShouldReplace(newSchema, oldSchema schema.Schema) bool {
	if len(oldSchema) == 0 {
		return true
	}

	// Last occurrence wins for duplicate names, matching map semantics in
	// the sidecar consumers.
	oldByName := make(map[string]schema.Type, len(oldSchema))
	for _, c := range oldSchema {
		oldByName[c.Name] = c.Type
	}

	shared := 0
	widened := false
	for _, c := range newSchema {
		oldType, ok := oldByName[c.Name]
		if !ok {
			continue
		}
		shared++
		switch Compare(oldType, c.Type) {
		case Narrowed:
			return false
		case Widened:
			widened = true
		}
	}

	if shared == 0 {
		return true
	}
	return widened
}
