package envutil

import (
	"testing"
	"time"
)

func TestEnvReaders(t *testing.T) {
	t.Setenv("SC_TEST_INT", "7")
	t.Setenv("SC_TEST_BAD_INT", "seven")
	t.Setenv("SC_TEST_BOOL", "yes")
	t.Setenv("SC_TEST_SECONDS", "-3")
	t.Setenv("SC_TEST_LIST", " a, ,b ,c")

	if got := Int("SC_TEST_INT", 1); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	if got := Int("SC_TEST_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback: want=1 got=%d", got)
	}
	if !Bool("SC_TEST_BOOL", false) {
		t.Fatalf("Bool: want=true")
	}
	if Bool("SC_TEST_MISSING_BOOL", false) {
		t.Fatalf("Bool default: want=false")
	}
	if got := Seconds("SC_TEST_SECONDS", 5); got != 0 {
		t.Fatalf("Seconds clamp: want=0 got=%v", got)
	}
	if got := Seconds("SC_TEST_MISSING_SECONDS", 5); got != 5*time.Second {
		t.Fatalf("Seconds default: want=5s got=%v", got)
	}
	got := List("SC_TEST_LIST")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("List: got=%v", got)
	}
	if got := String("SC_TEST_MISSING_STRING", "def"); got != "def" {
		t.Fatalf("String default: got=%q", got)
	}
}
