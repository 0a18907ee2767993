package version

import "testing"

func TestString(t *testing.T) {
	saved := GravityYAMLVersion
	defer func() { GravityYAMLVersion = saved }()

	GravityYAMLVersion = "1.2.3"
	if got := String(); got != "gravityyaml version 1.2.3" {
		t.Errorf("String() = %q", got)
	}
}
