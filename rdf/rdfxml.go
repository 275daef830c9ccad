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

package rdf

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Decode parses an RDF/XML document into a graph. It covers the subset of
// RDF/XML that catalog and harvester exports actually use: typed node
// elements and rdf:Description, property elements with rdf:resource or
// rdf:nodeID references, nested node elements, rdf:parseType="Resource",
// and plain or typed literals.
func Decode(reader io.Reader) (*Graph, error) {
	d := &rdfxmlDecoder{
		decoder: xml.NewDecoder(reader),
		graph:   NewGraph(),
	}
	err := d.decodeDocument()
	if err != nil {
		return nil, err
	}
	return d.graph, nil
}

type rdfxmlDecoder struct {
	decoder     *xml.Decoder
	graph       *Graph
	blankCursor int
}

func (d *rdfxmlDecoder) newBlank() Term {
	d.blankCursor++
	return NewBlank(fmt.Sprintf("b%d", d.blankCursor))
}

func (d *rdfxmlDecoder) decodeDocument() error {
	sawContent := false
	for {
		token, err := d.decoder.Token()
		if err == io.EOF {
			if !sawContent {
				return fmt.Errorf("invalid RDF/XML: no content")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("invalid RDF/XML: %s", err.Error())
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		sawContent = true
		if start.Name.Space == RDFNS && start.Name.Local == "RDF" {
			err = d.decodeNodeElements()
		} else {
			// a document whose root is itself a node element
			_, err = d.decodeNodeElement(start)
		}
		if err != nil {
			return err
		}
	}
}

// decodes node elements until the enclosing end tag
func (d *rdfxmlDecoder) decodeNodeElements() error {
	for {
		token, err := d.decoder.Token()
		if err != nil {
			return fmt.Errorf("invalid RDF/XML: %s", err.Error())
		}
		switch tok := token.(type) {
		case xml.StartElement:
			if _, err := d.decodeNodeElement(tok); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// decodes one node element and its property elements, returning the
// subject term
func (d *rdfxmlDecoder) decodeNodeElement(start xml.StartElement) (Term, error) {
	subject := d.newBlank()
	for _, attr := range start.Attr {
		if attr.Name.Space == RDFNS {
			switch attr.Name.Local {
			case "about":
				subject = NewIRI(attr.Value)
			case "nodeID":
				subject = NewBlank(attr.Value)
			}
		}
	}

	// a typed node element asserts its own rdf:type
	if start.Name.Space != RDFNS || start.Name.Local != "Description" {
		d.graph.Add(Triple{
			Subject:   subject,
			Predicate: RDFType,
			Object:    NewIRI(start.Name.Space + start.Name.Local),
		})
	}

	// property attributes (anything outside the rdf and xmlns namespaces)
	for _, attr := range start.Attr {
		if attr.Name.Space == RDFNS || attr.Name.Space == "xmlns" ||
			attr.Name.Space == "xml" || attr.Name.Space == "" {
			continue
		}
		d.graph.Add(Triple{
			Subject:   subject,
			Predicate: NewIRI(attr.Name.Space + attr.Name.Local),
			Object:    NewLiteral(attr.Value),
		})
	}

	for {
		token, err := d.decoder.Token()
		if err != nil {
			return Term{}, fmt.Errorf("invalid RDF/XML: %s", err.Error())
		}
		switch tok := token.(type) {
		case xml.StartElement:
			if err := d.decodePropertyElement(subject, tok); err != nil {
				return Term{}, err
			}
		case xml.EndElement:
			return subject, nil
		}
	}
}

// decodes one property element of the given subject
func (d *rdfxmlDecoder) decodePropertyElement(subject Term, start xml.StartElement) error {
	predicate := NewIRI(start.Name.Space + start.Name.Local)

	var resource, nodeID, parseType, datatype, language string
	for _, attr := range start.Attr {
		switch {
		case attr.Name.Space == RDFNS && attr.Name.Local == "resource":
			resource = attr.Value
		case attr.Name.Space == RDFNS && attr.Name.Local == "nodeID":
			nodeID = attr.Value
		case attr.Name.Space == RDFNS && attr.Name.Local == "parseType":
			parseType = attr.Value
		case attr.Name.Space == RDFNS && attr.Name.Local == "datatype":
			datatype = attr.Value
		case attr.Name.Local == "lang":
			language = attr.Value
		}
	}

	if resource != "" {
		d.graph.Add(Triple{Subject: subject, Predicate: predicate, Object: NewIRI(resource)})
		return d.skipElement()
	}
	if nodeID != "" {
		d.graph.Add(Triple{Subject: subject, Predicate: predicate, Object: NewBlank(nodeID)})
		return d.skipElement()
	}
	if parseType == "Resource" {
		// an implicit blank node carrying the nested property elements
		object := d.newBlank()
		d.graph.Add(Triple{Subject: subject, Predicate: predicate, Object: object})
		for {
			token, err := d.decoder.Token()
			if err != nil {
				return fmt.Errorf("invalid RDF/XML: %s", err.Error())
			}
			switch tok := token.(type) {
			case xml.StartElement:
				if err := d.decodePropertyElement(object, tok); err != nil {
					return err
				}
			case xml.EndElement:
				return nil
			}
		}
	}

	var text strings.Builder
	sawNode := false
	for {
		token, err := d.decoder.Token()
		if err != nil {
			return fmt.Errorf("invalid RDF/XML: %s", err.Error())
		}
		switch tok := token.(type) {
		case xml.StartElement:
			object, err := d.decodeNodeElement(tok)
			if err != nil {
				return err
			}
			d.graph.Add(Triple{Subject: subject, Predicate: predicate, Object: object})
			sawNode = true
		case xml.CharData:
			text.Write(tok)
		case xml.EndElement:
			if !sawNode {
				d.graph.Add(Triple{
					Subject:   subject,
					Predicate: predicate,
					Object: Term{
						Kind:     Literal,
						Value:    strings.TrimSpace(text.String()),
						Language: language,
						Datatype: datatype,
					},
				})
			}
			return nil
		}
	}
}

// consumes tokens until the current element's end tag
func (d *rdfxmlDecoder) skipElement() error {
	depth := 0
	for {
		token, err := d.decoder.Token()
		if err != nil {
			return fmt.Errorf("invalid RDF/XML: %s", err.Error())
		}
		switch token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}
