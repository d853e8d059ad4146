package configs

import (
	"testing"
)

func TestFirst(t *testing.T) {
	loader := NewSourceLoader([]Source{
		{Name: "test.cue", Content: `str: "bar"`},
	}, testSchema)

	str := First[string](loader, "str")
	if str != "bar" {
		t.Fatalf("got %v", str)
	}

	// absent path decodes to the zero value
	if n := First[int](loader, "absent"); n != 0 {
		t.Fatalf("got %v", n)
	}

}
