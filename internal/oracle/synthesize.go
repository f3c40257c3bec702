package oracle

import (
	"fmt"

	"github.com/quantumsql/qsql/internal/cond"
)

// Synthesize compiles a condition tree into an Oracle.
//
// The walk is depth-first left-to-right, so unit ids follow the textual
// order of first occurrence. Structurally identical leaves deduplicate
// to one unit regardless of how often they appear; each occurrence gets
// its own PlanLeaf node referencing the shared unit.
func Synthesize(t *cond.Tree) (*Oracle, error) {
	if t == nil || len(t.Nodes) == 0 {
		return nil, fmt.Errorf("synthesize: empty condition tree")
	}

	s := &synthesizer{
		tree:    t,
		unitIDs: make(map[string]int),
	}
	root, err := s.build(t.Root)
	if err != nil {
		return nil, err
	}

	o := &s.oracle
	o.Root = root
	markFlipPhase(o)
	indexColumns(o)
	return o, nil
}

type synthesizer struct {
	tree    *cond.Tree
	oracle  Oracle
	unitIDs map[string]int // content hash -> unit id
}

func (s *synthesizer) build(idx int) (int, error) {
	n := s.tree.Nodes[idx]
	switch n.Kind {
	case cond.NodeComparison:
		return s.leaf(PredicateUnit{
			Kind:   UnitComparison,
			Column: n.Column,
			Op:     n.Op,
			Value:  n.Value,
		})

	case cond.NodeVar:
		return s.leaf(PredicateUnit{
			Kind:   UnitVar,
			Column: n.Column,
		})

	case cond.NodeNot:
		child, err := s.build(n.Left)
		if err != nil {
			return 0, err
		}
		return s.plan(PlanNode{Op: PlanNot, Left: child}), nil

	case cond.NodeAnd, cond.NodeOr:
		left, err := s.build(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := s.build(n.Right)
		if err != nil {
			return 0, err
		}
		op := PlanAnd
		if n.Kind == cond.NodeOr {
			op = PlanOr
		}
		return s.plan(PlanNode{Op: op, Left: left, Right: right}), nil

	default:
		return 0, fmt.Errorf("synthesize: unknown node kind %d", n.Kind)
	}
}

// leaf deduplicates a predicate unit by content hash and emits a
// PlanLeaf referencing it.
func (s *synthesizer) leaf(u PredicateUnit) (int, error) {
	key, err := unitKey(u)
	if err != nil {
		return 0, err
	}

	id, seen := s.unitIDs[key]
	if !seen {
		id = len(s.oracle.Units)
		u.ID = id
		s.oracle.Units = append(s.oracle.Units, u)
		s.unitIDs[key] = id
	}

	return s.plan(PlanNode{Op: PlanLeaf, Unit: id}), nil
}

func (s *synthesizer) plan(n PlanNode) int {
	s.oracle.Plan = append(s.oracle.Plan, n)
	return len(s.oracle.Plan) - 1
}

// markFlipPhase sets the advisory FlipPhase flag on units whose every
// plan reference is the direct child of a NOT node.
func markFlipPhase(o *Oracle) {
	total := make([]int, len(o.Units))
	negated := make([]int, len(o.Units))

	for _, n := range o.Plan {
		if n.Op == PlanLeaf {
			total[n.Unit]++
		}
		if n.Op == PlanNot {
			child := o.Plan[n.Left]
			if child.Op == PlanLeaf {
				negated[child.Unit]++
			}
		}
	}

	for i := range o.Units {
		o.Units[i].FlipPhase = total[i] > 0 && negated[i] == total[i]
	}
}

// indexColumns records the distinct referenced columns in unit order.
// Register slots follow this order.
func indexColumns(o *Oracle) {
	o.colIndex = make(map[string]int)
	for _, u := range o.Units {
		if _, seen := o.colIndex[u.Column]; !seen {
			o.colIndex[u.Column] = len(o.columns)
			o.columns = append(o.columns, u.Column)
		}
	}
}

// MarshalTree renders a condition tree as canonical JSON. Used by the
// parse command and the golden tests.
func MarshalTree(t *cond.Tree) ([]byte, error) {
	m, err := treeMap(t, t.Root)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(m)
}

func treeMap(t *cond.Tree, idx int) (map[string]any, error) {
	n := t.Nodes[idx]
	switch n.Kind {
	case cond.NodeComparison:
		return map[string]any{
			"kind":   "cmp",
			"column": n.Column,
			"op":     n.Op,
			"value":  n.Value,
		}, nil
	case cond.NodeVar:
		return map[string]any{
			"kind":   "var",
			"column": n.Column,
		}, nil
	case cond.NodeNot:
		child, err := treeMap(t, n.Left)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "not", "child": child}, nil
	case cond.NodeAnd, cond.NodeOr:
		left, err := treeMap(t, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := treeMap(t, n.Right)
		if err != nil {
			return nil, err
		}
		kind := "and"
		if n.Kind == cond.NodeOr {
			kind = "or"
		}
		return map[string]any{"kind": kind, "left": left, "right": right}, nil
	default:
		return nil, fmt.Errorf("unknown node kind: %d", n.Kind)
	}
}
