package core

import (
	"encoding/json"
	"fmt"
)

// classification tags distinguishing packages by originating harvest
// pipeline; they drive contact routing
const (
	GEOCAT = "geocat"
	DCAT   = "dcat"
)

// identifiers for the supported checker modes
const (
	ModeLink  = "link"
	ModeShacl = "shacl"
)

// a field holding one value per catalog language
type MultiLanguageField map[string]string

// returns the field's value in the first filled language (de, fr, en, it),
// falling back to the given backup string
func (f MultiLanguageField) InOneLanguage(backup string) string {
	for _, lang := range []string{"de", "fr", "en", "it"} {
		if f[lang] != "" {
			return f[lang]
		}
	}
	return backup
}

// the organization that published a package
type Organization struct {
	Name  string             `json:"name"`
	Title MultiLanguageField `json:"title"`
}

// a contact point declared on a package
type ContactPoint struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// a related entry on a package, carrying a URL and a label
type Relation struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// a qualified relation on a package (DCAT dcat:qualifiedRelation)
type QualifiedRelation struct {
	Relation string `json:"relation"`
	HadRole  string `json:"had_role"`
}

// a key/value entry attached to a package by the catalog
type Extra struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// a downloadable artifact belonging to a package
type Resource struct {
	Id             string             `json:"id"`
	URL            string             `json:"url"`
	DownloadURL    string             `json:"download_url"`
	DisplayName    MultiLanguageField `json:"display_name"`
	Documentation  []string           `json:"documentation"`
	AccessServices []string           `json:"access_services"`
}

// one dataset's metadata as returned by the catalog
type Package struct {
	Id                 string              `json:"id"`
	Name               string              `json:"name"`
	Type               string              `json:"type"`
	Title              MultiLanguageField  `json:"title"`
	URL                string              `json:"url"`
	Publisher          string              `json:"publisher"`
	Identifier         string              `json:"identifier"`
	Organization       Organization        `json:"organization"`
	Resources          []Resource          `json:"resources"`
	Relations          []Relation          `json:"relations"`
	QualifiedRelations []QualifiedRelation `json:"qualified_relations"`
	ConformsTo         []string            `json:"conforms_to"`
	Documentation      []string            `json:"documentation"`
	ContactPoints      []ContactPoint      `json:"contact_points"`
	Extras             []Extra             `json:"extras"`

	// set exactly once during enrichment, before any checker sees the
	// package; never supplied by the catalog
	PkgType string   `json:"-"`
	SendTo  []string `json:"-"`
}

// returns the value of the named extra, or an empty string
func (p *Package) Extra(key string) string {
	for _, extra := range p.Extras {
		if extra.Key == key {
			return extra.Value
		}
	}
	return ""
}

// the identifier of the harvest source that produced this package, if any
func (p *Package) HarvestSourceId() string {
	return p.Extra("harvest_source_id")
}

// the publisher field as stored by the catalog: a JSON object serialized
// into a string
type Publisher struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// decodes a package's serialized publisher field
func DecodePublisher(field string) (Publisher, error) {
	var publisher Publisher
	if field == "" {
		return publisher, nil
	}
	err := json.Unmarshal([]byte(field), &publisher)
	if err != nil {
		return Publisher{}, fmt.Errorf("couldn't decode publisher %q: %s", field, err.Error())
	}
	return publisher, nil
}

// a notification recipient
type Contact struct {
	Name  string
	Email string
}

// identifies the recipients responsible for one organization's packages of
// a given type
type ContactKey struct {
	Organization string
	PkgType      string
}

// the run-global mapping from contact keys to recipient email addresses,
// built once at startup and treated as read-only afterwards
type ContactTable map[ContactKey][]string
