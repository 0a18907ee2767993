// Package version holds the gravityyaml release version.
package version

// GravityYAMLVersion is reported by the version command. Release builds set it
// with -ldflags "-X gravityyaml/pkg/version.GravityYAMLVersion=<tag>".
var GravityYAMLVersion = "0.0.0-src"

// String returns the line printed by "gravityyaml version".
func String() string {
	return "gravityyaml version " + GravityYAMLVersion
}
