// Copyright (c) 2024 The Open Data Package Checker Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package holds the semantic-graph substrate used by the shape
// checker: an arena of triples indexed by subject, with explicit node ids
// instead of object identity.
package rdf

import (
	"fmt"
)

// one triple in a graph
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// a graph of triples, insertion-ordered, indexed by subject
type Graph struct {
	triples   []Triple
	bySubject map[Term][]int
}

func NewGraph() *Graph {
	return &Graph{
		bySubject: make(map[Term][]int),
	}
}

// adds a triple; duplicate triples are kept out of the arena
func (g *Graph) Add(triple Triple) {
	key := triple.Subject.key()
	for _, index := range g.bySubject[key] {
		if g.triples[index] == triple {
			return
		}
	}
	g.triples = append(g.triples, triple)
	g.bySubject[key] = append(g.bySubject[key], len(g.triples)-1)
}

func (g *Graph) Len() int {
	return len(g.triples)
}

// all triples in insertion order
func (g *Graph) Triples() []Triple {
	return g.triples
}

// all triples with the given subject, in insertion order
func (g *Graph) PredicateObjects(subject Term) []Triple {
	indices := g.bySubject[subject.key()]
	triples := make([]Triple, 0, len(indices))
	for _, index := range indices {
		triples = append(triples, g.triples[index])
	}
	return triples
}

// all objects for the given subject and predicate
func (g *Graph) Objects(subject, predicate Term) []Term {
	var objects []Term
	for _, index := range g.bySubject[subject.key()] {
		if g.triples[index].Predicate.Value == predicate.Value {
			objects = append(objects, g.triples[index].Object)
		}
	}
	return objects
}

// the first object for the given subject and predicate, if any
func (g *Graph) FirstObject(subject, predicate Term) (Term, bool) {
	objects := g.Objects(subject, predicate)
	if len(objects) == 0 {
		return Term{}, false
	}
	return objects[0], true
}

// all subjects carrying the given predicate and object, in insertion order
// and without repeats
func (g *Graph) SubjectsWith(predicate, object Term) []Term {
	var subjects []Term
	seen := make(map[Term]bool)
	for _, triple := range g.triples {
		if triple.Predicate.Value != predicate.Value {
			continue
		}
		if triple.Object.Value != object.Value || triple.Object.Kind != object.Kind {
			continue
		}
		key := triple.Subject.key()
		if !seen[key] {
			seen[key] = true
			subjects = append(subjects, triple.Subject)
		}
	}
	return subjects
}

// reports whether any triple has the given term as its subject
func (g *Graph) HasSubject(term Term) bool {
	return len(g.bySubject[term.key()]) > 0
}

// ExpandValue renders a violation value as a flat printable string. A
// literal or IRI is shown as-is; for a blank node the first
// predicate/object pair of the nested node is pulled out and shown as
// "predicate: object". When the nested node has no triples the raw
// reference string is all that can be shown.
func (g *Graph) ExpandValue(term Term) (string, bool) {
	if term.Kind != Blank {
		return term.String(), true
	}
	triples := g.PredicateObjects(term)
	if len(triples) == 0 {
		return term.String(), false
	}
	first := triples[0]
	return fmt.Sprintf("%s %s", QName(first.Predicate.Value), first.Object.String()), true
}
