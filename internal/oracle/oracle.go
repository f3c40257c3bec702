package oracle

import (
	"fmt"

	"github.com/quantumsql/qsql/internal/cond"
)

// UnitKind tags the two leaf shapes an oracle evaluates.
type UnitKind int

const (
	// UnitComparison is column <op> literal.
	UnitComparison UnitKind = iota + 1
	// UnitVar is a bare boolean column reference.
	UnitVar
)

// PredicateUnit is one deduplicated predicate leaf. IDs are sequential
// in first-visit order and stable for a given tree. Units are shared by
// every plan reference and must never be mutated after synthesis.
type PredicateUnit struct {
	ID     int
	Kind   UnitKind
	Column string
	Op     string     // comparisons only
	Value  cond.Value // comparisons only

	// FlipPhase is advisory: true when every plan reference to this
	// unit sits directly under a NOT, so a backend may fold the
	// negation into the unit. Both shipped backends apply negation at
	// the plan level and only report this flag.
	FlipPhase bool
}

// PlanOp tags combinator plan nodes.
type PlanOp int

const (
	// PlanLeaf evaluates a predicate unit.
	PlanLeaf PlanOp = iota + 1
	// PlanNot complements its Left child.
	PlanNot
	// PlanAnd and PlanOr combine Left and Right.
	PlanAnd
	PlanOr
)

// PlanNode is one arena slot of the combinator plan. Children are arena
// indices; Unit is meaningful for PlanLeaf only.
type PlanNode struct {
	Op    PlanOp
	Unit  int
	Left  int
	Right int
}

// Oracle is the compiled, evaluator-agnostic form of a condition:
// deduplicated predicate units plus the combinator plan linking them.
// Built once per query and reused read-only across all batches.
type Oracle struct {
	Units []PredicateUnit
	Plan  []PlanNode
	Root  int

	columns  []string
	colIndex map[string]int
}

// Width is the effective width: the number of distinct predicate units
// a batch must evaluate. Drives the dense/sparse decision.
func (o *Oracle) Width() int {
	return len(o.Units)
}

// Columns returns the distinct referenced columns in leaf-declared
// order. The returned slice is owned by the oracle; callers must not
// modify it.
func (o *Oracle) Columns() []string {
	return o.columns
}

// ColumnIndex returns the register slot for a column.
func (o *Oracle) ColumnIndex(name string) (int, bool) {
	idx, ok := o.colIndex[name]
	return idx, ok
}

// Fingerprint returns a content-addressed id of the whole oracle.
// Workers that rebuild the oracle from the same condition text can
// verify they hold an identical compile.
func (o *Oracle) Fingerprint() (string, error) {
	m, err := o.canonicalMap()
	if err != nil {
		return "", err
	}
	b, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domainOracle, b), nil
}

// MarshalOracle renders the oracle as canonical JSON for golden files
// and the compile command.
func MarshalOracle(o *Oracle) ([]byte, error) {
	m, err := o.canonicalMap()
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(m)
}

func (o *Oracle) canonicalMap() (map[string]any, error) {
	units := make([]any, len(o.Units))
	for i, u := range o.Units {
		um, err := unitMap(u)
		if err != nil {
			return nil, err
		}
		um["id"] = u.ID
		um["flip_phase"] = u.FlipPhase
		units[i] = um
	}

	plan := make([]any, len(o.Plan))
	for i, n := range o.Plan {
		pm := map[string]any{}
		switch n.Op {
		case PlanLeaf:
			pm["op"] = "leaf"
			pm["unit"] = n.Unit
		case PlanNot:
			pm["op"] = "not"
			pm["child"] = n.Left
		case PlanAnd:
			pm["op"] = "and"
			pm["left"] = n.Left
			pm["right"] = n.Right
		case PlanOr:
			pm["op"] = "or"
			pm["left"] = n.Left
			pm["right"] = n.Right
		default:
			return nil, fmt.Errorf("unknown plan op: %d", n.Op)
		}
		plan[i] = pm
	}

	return map[string]any{
		"units": units,
		"plan":  plan,
		"root":  o.Root,
	}, nil
}

// unitMap renders the identity-bearing part of a unit: the fields that
// participate in structural deduplication.
func unitMap(u PredicateUnit) (map[string]any, error) {
	switch u.Kind {
	case UnitComparison:
		return map[string]any{
			"kind":   "cmp",
			"column": u.Column,
			"op":     u.Op,
			"value":  u.Value,
		}, nil
	case UnitVar:
		return map[string]any{
			"kind":   "var",
			"column": u.Column,
		}, nil
	default:
		return nil, fmt.Errorf("unknown unit kind: %d", u.Kind)
	}
}

// unitKey computes the content-addressed dedup key for a leaf.
func unitKey(u PredicateUnit) (string, error) {
	m, err := unitMap(u)
	if err != nil {
		return "", err
	}
	b, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("unit key: %w", err)
	}
	return hashWithDomain(domainUnit, b), nil
}
