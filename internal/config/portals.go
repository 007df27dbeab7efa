package config

// PortalOverride adjusts one portal's wiring without a rebuild. Keys in
// the Portals map are adapter names such as "trf1-pje1g".
type PortalOverride struct {
	// BaseURL replaces the portal's base URL. Tribunals occasionally
	// move a portal to a new host mid-year.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Disabled removes the portal from the crawl set, for portals that
	// are offline for maintenance.
	Disabled bool `yaml:"disabled,omitempty"`
}

// File is the structure of the .jusbr.yml configuration file.
type File struct {
	// Portals maps adapter names to their overrides.
	Portals map[string]PortalOverride `yaml:"portals,omitempty"`
}

// BaseURLOverrides returns the non-empty base URL replacements.
func (cf *File) BaseURLOverrides() map[string]string {
	out := make(map[string]string)
	for name, override := range cf.Portals {
		if override.BaseURL != "" {
			out[name] = override.BaseURL
		}
	}
	return out
}

// DisabledPortals returns the names of portals marked disabled.
func (cf *File) DisabledPortals() []string {
	var out []string
	for name, override := range cf.Portals {
		if override.Disabled {
			out = append(out, name)
		}
	}
	return out
}
