package rdf

// the kinds of RDF terms
type Kind int

const (
	IRI Kind = iota
	Literal
	Blank
)

// one RDF term: an IRI, a literal, or a blank node
type Term struct {
	Kind     Kind
	Value    string
	Language string
	Datatype string
}

func NewIRI(value string) Term {
	return Term{Kind: IRI, Value: value}
}

func NewLiteral(value string) Term {
	return Term{Kind: Literal, Value: value}
}

func NewBlank(label string) Term {
	return Term{Kind: Blank, Value: label}
}

// returns the term's display form: the IRI, the literal's lexical form,
// or a labeled blank node
func (t Term) String() string {
	if t.Kind == Blank {
		return "_:" + t.Value
	}
	return t.Value
}

// a key identity that ignores literal annotations, used for graph indexing
func (t Term) key() Term {
	return Term{Kind: t.Kind, Value: t.Value}
}
