package core

import (
	"net/url"
	"strings"
)

// joins a path onto the catalog site URL, keeping only the site's scheme
// and host (absolute-path join, like urljoin with a rooted path)
func joinSiteURL(siteURL, path string) string {
	base, err := url.Parse(siteURL)
	if err != nil {
		return strings.TrimRight(siteURL, "/") + path
	}
	ref := url.URL{Path: path}
	return base.ResolveReference(&ref).String()
}

// the catalog's dataset detail page for a package
func DatasetURL(siteURL, pkgName string) string {
	return joinSiteURL(siteURL, "/dataset/"+pkgName)
}

// the catalog's resource detail page for a resource of a package
func ResourceURL(siteURL, pkgName, resourceId string) string {
	return joinSiteURL(siteURL, "/dataset/"+pkgName+"/resource/"+resourceId)
}

// the catalog's RDF/XML serialization endpoint for a package
func DatasetRDFURL(siteURL, pkgName string) string {
	return siteURL + "/dataset/" + pkgName + ".rdf"
}

// the catalog's Turtle serialization endpoint for a package
func DatasetTTLURL(siteURL, pkgName string) string {
	return siteURL + "/dataset/" + pkgName + ".ttl"
}
