package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "nope")
	if got := Int("ENVUTIL_INT", 7); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_INT", " 12 ")
	if got := Int("ENVUTIL_INT", 7); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
}

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("ENVUTIL_DUR", "45")
	if got := Duration("ENVUTIL_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("Duration: want=45s got=%s", got)
	}
	t.Setenv("ENVUTIL_DUR", "250ms")
	if got := Duration("ENVUTIL_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("Duration: want=250ms got=%s", got)
	}
}

func TestBoolAndCSV(t *testing.T) {
	t.Setenv("ENVUTIL_BOOL", "off")
	if Bool("ENVUTIL_BOOL", true) {
		t.Fatalf("Bool: want=false")
	}
	t.Setenv("ENVUTIL_CSV", "a, ,b")
	got := CSV("ENVUTIL_CSV", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("CSV: got=%v", got)
	}
	if String("ENVUTIL_UNSET_X", "d", nil) != "d" {
		t.Fatalf("String default not applied")
	}
}
