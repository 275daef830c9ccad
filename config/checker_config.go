package config

// configuration for the link checker strategy
type linkCheckerConfig struct {
	// name of the result CSV inside a run directory
	Csvfile string `yaml:"csvfile"`
	// per-request timeout in seconds for URL probes
	Timeout int `yaml:"timeout"`
}

// configuration for the shape validation checker strategy
type shaclCheckerConfig struct {
	// name of the result CSV inside a run directory
	Csvfile string `yaml:"csvfile"`
	// path of the YAML shape ruleset (required when the checker is active)
	Shapes string `yaml:"shapes"`
	// path of an additional ruleset applied to harvest-source imports;
	// optional, its absence just skips the import-side check pass
	ImportShapes string `yaml:"import_shapes"`
	// paths of RDF/XML controlled-vocabulary resources
	Vocabularies []string `yaml:"vocabularies"`
	// harvest source id -> RDF export URL of the harvester
	Harvesters map[string]string `yaml:"harvesters"`
}

// configuration for contact resolution
type contactsConfig struct {
	// path of the static contacts CSV (organization_slug, pkg_type,
	// space-separated contact_emails); optional
	Csvfile string `yaml:"csvfile"`
	// the global default recipient, used when no mapping and no
	// organization admins can be found
	DefaultName  string `yaml:"default_name"`
	DefaultEmail string `yaml:"default_email"`
}
