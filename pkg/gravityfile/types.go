// Package gravityfile reads the gravity.yaml document describing adlists and groups.
package gravityfile

// Document is the parsed gravity.yaml. It is not modified after Load.
type Document struct {
	Groups  []GroupSpec  `yaml:"groups"`
	Adlists []AdlistSpec `yaml:"adlists"`
}

// GroupSpec describes a named group adlists can be assigned to.
type GroupSpec struct {
	Name        string  `yaml:"name"`
	Enabled     *bool   `yaml:"enabled"`
	Description *string `yaml:"description"`
}

// IsEnabled reports the effective enabled state. Groups are enabled unless set otherwise.
func (g GroupSpec) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// AdlistSpec describes a blocklist source and the groups it belongs to.
type AdlistSpec struct {
	URL         string   `yaml:"url"`
	Enabled     *bool    `yaml:"enabled"`
	Description *string  `yaml:"description"`
	Groups      []string `yaml:"groups"`
}

// IsEnabled reports the effective enabled state. Adlists are enabled unless set otherwise.
func (a AdlistSpec) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}
