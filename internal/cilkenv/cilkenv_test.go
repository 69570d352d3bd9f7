package cilkenv

import "testing"

func TestDefaults(t *testing.T) {
	t.Setenv("CILKSAN_OUT", "")
	t.Setenv("CILKSAN_STATS", "")
	t.Setenv("CILKSAN_CHECK_ATOMICS", "")
	t.Setenv("CILKSAN_COLOR_REPORT", "")
	c := FromEnviron()
	if c.Stats {
		t.Fatal("CILKSAN_STATS should default to false")
	}
	if c.ColorReport != "auto" {
		t.Fatalf("CILKSAN_COLOR_REPORT should default to auto, got %q", c.ColorReport)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("CILKSAN_STATS", "1")
	t.Setenv("CILKSAN_CHECK_ATOMICS", "true")
	t.Setenv("CILKSAN_COLOR_REPORT", "always")
	c := FromEnviron()
	if !c.Stats || !c.CheckAtomics || c.ColorReport != "always" {
		t.Fatalf("unexpected config: %+v", c)
	}
}
