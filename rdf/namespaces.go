package rdf

import "strings"

// the namespaces used by catalog exports and the shape vocabulary
const (
	RDFNS    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	DCTNS    = "http://purl.org/dc/terms/"
	DCATNS   = "http://www.w3.org/ns/dcat#"
	VCARDNS  = "http://www.w3.org/2006/vcard/ns#"
	SCHEMANS = "http://schema.org/"
	ADMSNS   = "http://www.w3.org/ns/adms#"
	FOAFNS   = "http://xmlns.com/foaf/0.1/"
	TIMENS   = "http://www.w3.org/2006/time#"
	SKOSNS   = "http://www.w3.org/2004/02/skos/core#"
	LOCNNS   = "http://www.w3.org/ns/locn#"
	GSPNS    = "http://www.opengis.net/ont/geosparql#"
	OWLNS    = "http://www.w3.org/2002/07/owl#"
	SPDXNS   = "http://spdx.org/rdf/terms#"
	XSDNS    = "http://www.w3.org/2001/XMLSchema#"
	SHNS     = "http://www.w3.org/ns/shacl#"
)

// the prefix bindings used for qualified names
var prefixes = map[string]string{
	"rdf":    RDFNS,
	"dct":    DCTNS,
	"dcat":   DCATNS,
	"vcard":  VCARDNS,
	"schema": SCHEMANS,
	"adms":   ADMSNS,
	"foaf":   FOAFNS,
	"time":   TIMENS,
	"skos":   SKOSNS,
	"locn":   LOCNNS,
	"gsp":    GSPNS,
	"owl":    OWLNS,
	"spdx":   SPDXNS,
	"xsd":    XSDNS,
	"sh":     SHNS,
}

// terms used throughout the checkers
var (
	RDFType       = NewIRI(RDFNS + "type")
	DCTIdentifier = NewIRI(DCTNS + "identifier")
	SKOSConcept   = NewIRI(SKOSNS + "Concept")
	SKOSInScheme  = NewIRI(SKOSNS + "inScheme")
)

// QName renders an IRI as a qualified name under the bound prefixes; an
// IRI under no bound namespace is shown in angle brackets.
func QName(iri string) string {
	bestPrefix := ""
	bestLen := 0
	for prefix, ns := range prefixes {
		if strings.HasPrefix(iri, ns) && len(ns) > bestLen {
			bestPrefix = prefix
			bestLen = len(ns)
		}
	}
	if bestLen == 0 {
		return "<" + iri + ">"
	}
	return bestPrefix + ":" + iri[bestLen:]
}

// ExpandQName resolves a prefixed name ("dct:title") to a full IRI; a
// string that is already a full IRI passes through unchanged.
func ExpandQName(name string) (string, bool) {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name, true
	}
	prefix, local, found := strings.Cut(name, ":")
	if !found {
		return "", false
	}
	ns, bound := prefixes[prefix]
	if !bound {
		return "", false
	}
	return ns + local, true
}
