package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("Draft a welcome note.", ModeProse)
	if !strings.HasPrefix(once, marker) || !strings.HasSuffix(once, "Draft a welcome note.") {
		t.Fatalf("unexpected prompt: %q", once)
	}
	if twice := ApplySystem(once, ModeProse); twice != once {
		t.Fatalf("guidance applied twice")
	}
}

func TestApplySystemJSONMode(t *testing.T) {
	got := ApplySystem("List fields.", ModeJSON)
	if !strings.Contains(got, "single JSON object") {
		t.Fatalf("json guidance missing: %q", got)
	}
	if ApplySystem("   ", ModeJSON) != "" {
		t.Fatalf("empty prompt should stay empty")
	}
}
