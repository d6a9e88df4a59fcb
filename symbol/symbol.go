// Package symbol holds the typed value symbols shared by the LCFRS rule
// component and the DCP (definite clause program) component synchronized
// with it: LCFRS variables referencing RHS argument slots, and the DCP
// variable/index/term vocabulary used to build output trees.
//
// Every type here is an immutable value type with equality, a canonical
// String form (used both for debugging and as part of a grammar rule's
// dedup key), and is safe to use as a map key or to compare with ==
// where the Go type allows it directly.
package symbol

import (
	"fmt"
	"strings"
)

// LCFRSVar is the j-th argument of the i-th RHS nonterminal of an LCFRS
// rule. By convention i == -1 denotes the LHS and is used only inside DCP
// rule RHS's, never inside an LCFRS argument sequence itself.
type LCFRSVar struct {
	I int
	J int
}

func (v LCFRSVar) String() string {
	return fmt.Sprintf("<%d,%d>", v.I, v.J)
}

// Terminal is a literal token occupying a slot in an LCFRS argument.
type Terminal string

func (t Terminal) String() string { return string(t) }

// ArgElement is one element of an LCFRS rule argument sequence: either a
// Terminal or an LCFRSVar.
type ArgElement interface {
	fmt.Stringer
	isArgElement()
}

func (LCFRSVar) isArgElement() {}
func (Terminal) isArgElement() {}

// Arg is one component (one of the rule's fanout-many tuples) of an LCFRS
// rule's RHS string construction.
type Arg []ArgElement

func (a Arg) String() string {
	parts := make([]string, len(a))
	for i, e := range a {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// DCPVar is a DCP attribute reference: I == -1 selects the LHS attribute,
// I >= 0 selects the attribute of the I-th RHS nonterminal; J indexes the
// attribute itself (multiple attributes per symbol are allowed).
type DCPVar struct {
	I int
	J int
}

func (v DCPVar) String() string {
	if v.I == -1 {
		return fmt.Sprintf("<%d>", v.J)
	}
	return fmt.Sprintf("<%d,%d>", v.I, v.J)
}

func (DCPVar) isDCPElement() {}

// DCPIndex references the k-th terminal consumed by the LCFRS component of
// the same rule, counting left to right across the rule's args. EdgeLabel
// is carried through when the grammar's source tree labelled the
// corresponding edge (e.g. a dependency relation).
type DCPIndex struct {
	K         int
	EdgeLabel string
}

func (x DCPIndex) String() string {
	return fmt.Sprintf("[%d]", x.K)
}

func (DCPIndex) isDCPElement() {}

// DCPPos is a DCPIndex resolved against a concrete input: Pos is the
// absolute input position of the referenced terminal.
type DCPPos struct {
	Pos       int
	EdgeLabel string
}

func (p DCPPos) String() string {
	return fmt.Sprintf("pos(%d)", p.Pos)
}

func (DCPPos) isDCPElement() {}

// DCPElement is one element of a DCP rule's RHS, or a child of a DCPTerm:
// a DCPTerm, a DCPVar, a DCPIndex, or (after evaluation) a DCPPos.
type DCPElement interface {
	fmt.Stringer
	isDCPElement()
}

// DCPTerm is a labeled tree node in the DCP output term algebra. Head
// names a constituent category; HeadIndex, when set instead, names a
// dependency node by the position of its own governing terminal (the
// "DCP_term(DCP_index(k, deprel), [children...])" shape used by
// dependency induction, where the head of the term IS the resolved
// terminal rather than a synthesized category string). Exactly one of
// Head/HeadIndex should be set. EdgeLabel carries the edge connecting
// this node to its own parent in the source tree, when Head is used.
type DCPTerm struct {
	Head      string
	HeadIndex *DCPIndex
	EdgeLabel string
	Children  []DCPElement
}

func (DCPTerm) isDCPElement() {}

func (t DCPTerm) String() string {
	head := t.Head
	if t.HeadIndex != nil {
		head = t.HeadIndex.String()
	} else if t.EdgeLabel != "" {
		head = fmt.Sprintf("%s:%s", t.Head, t.EdgeLabel)
	}
	if len(t.Children) == 0 {
		return head
	}
	parts := make([]string, len(t.Children))
	for i, c := range t.Children {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", head, strings.Join(parts, " "))
}

// DCPRule defines the value of one DCP attribute: LHS names the attribute
// being defined, RHS is the list of terms/vars/indices whose concatenated
// evaluation gives that attribute's value.
type DCPRule struct {
	LHS DCPVar
	RHS []DCPElement
}

func (r DCPRule) String() string {
	parts := make([]string, len(r.RHS))
	for i, e := range r.RHS {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s=%s", r.LHS.String(), strings.Join(parts, " "))
}

// DCPRulesKey returns the rules' String forms joined in order, usable to
// compare two DCPRule sets for the purpose of rule-dedup keys.
func DCPRulesKey(rules []DCPRule) string {
	parts := make([]string, len(rules))
	for i, r := range rules {
		parts[i] = r.String()
	}
	return strings.Join(parts, "; ")
}
