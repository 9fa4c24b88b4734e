package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "1.2.3"
	if s := String(); !strings.Contains(s, "1.2.3") || !strings.Contains(s, GitSHA) {
		t.Errorf("String() = %q", s)
	}
}
