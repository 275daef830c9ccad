package rdf

import (
	"fmt"
	"net/http"
	"strings"
)

// Fetch retrieves and decodes an RDF/XML graph over HTTP.
func Fetch(client *http.Client, url string) (*Graph, error) {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/rdf+xml")
	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching graph from %s: %d %s", url,
			response.StatusCode, http.StatusText(response.StatusCode))
	}
	return Decode(response.Body)
}

// DatasetGraphFromSource extracts one dataset's graph from a harvest
// source export, matching subjects by dct:identifier. Geocat identifiers
// carry an "@organization" suffix, so the identifier is also tried with
// the suffix stripped. When several subjects match, the first match wins.
// The extracted graph carries the matched subject's triples plus one
// further level, so nested nodes (contact points, distributions) stay
// resolvable.
func DatasetGraphFromSource(source *Graph, identifier string) *Graph {
	rawId := identifier
	if at := strings.Index(identifier, "@"); at >= 0 {
		rawId = identifier[:at]
	}

	var ref Term
	found := false
	for _, triple := range source.Triples() {
		if triple.Predicate.Value != DCTIdentifier.Value {
			continue
		}
		value := triple.Object.Value
		if value == identifier || value == rawId {
			ref = triple.Subject
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	dataset := NewGraph()
	for _, triple := range source.PredicateObjects(ref) {
		dataset.Add(triple)
		if triple.Object.Kind == Literal {
			continue
		}
		for _, nested := range source.PredicateObjects(triple.Object) {
			dataset.Add(nested)
		}
	}
	return dataset
}
