package ids

import (
	"strings"
	"testing"
)

func TestNewIsSortable(t *testing.T) {
	a := New()
	b := New()
	if a >= b {
		t.Fatalf("expected %s < %s", a, b)
	}
}

func TestNewKeyKeepsExtension(t *testing.T) {
	key := NewKey("PDF")
	if !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if key != strings.ToLower(key) {
		t.Fatalf("expected lower-case key, got %q", key)
	}
	if bare := NewKey(""); strings.Contains(bare, ".") {
		t.Fatalf("unexpected extension in %q", bare)
	}
}
