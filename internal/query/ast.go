// Package query implements the boolean query parser, evaluator, BM25F
// scorer, and snippet highlighter that sit on top of internal/index's
// posting lists. No part of a query string is ever evaluated as code —
// parsing produces a fixed AST of term/field/boolean nodes only.
package query

// Node is one node of a parsed boolean query tree.
type Node interface {
	isNode()
}

// Term matches documents whose default fields (title, body) contain the
// stemmed term.
type Term struct {
	Text string
}

// FieldTerm matches documents whose named field contains the stemmed term.
type FieldTerm struct {
	Field string
	Text  string
}

// And matches documents satisfying both children.
type And struct {
	Left, Right Node
}

// Or matches documents satisfying either child.
type Or struct {
	Left, Right Node
}

// Not matches documents satisfying Left but not Right.
type Not struct {
	Left, Right Node
}

func (Term) isNode()      {}
func (FieldTerm) isNode() {}
func (And) isNode()       {}
func (Or) isNode()        {}
func (Not) isNode()       {}
