package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("BD_TIMEOUT", "45")
	if got := Duration("BD_TIMEOUT", time.Second); got != 45*time.Second {
		t.Fatalf("seconds: got=%s", got)
	}
	t.Setenv("BD_TIMEOUT", "1m30s")
	if got := Duration("BD_TIMEOUT", time.Second); got != 90*time.Second {
		t.Fatalf("go syntax: got=%s", got)
	}
	t.Setenv("BD_TIMEOUT", "soon")
	if got := Duration("BD_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("fallback: got=%s", got)
	}
}

func TestCSVTrimsAndDropsEmpty(t *testing.T) {
	t.Setenv("BD_ORIGINS", " http://a , ,http://b")
	got := CSV("BD_ORIGINS", nil)
	if !reflect.DeepEqual(got, []string{"http://a", "http://b"}) {
		t.Fatalf("got=%v", got)
	}
}

func TestIntAndBoolDefaults(t *testing.T) {
	t.Setenv("BD_WORKERS", "x")
	if got := Int("BD_WORKERS", 2); got != 2 {
		t.Fatalf("Int fallback: %d", got)
	}
	t.Setenv("BD_FLAG", "off")
	if Bool("BD_FLAG", true) {
		t.Fatalf("Bool off should be false")
	}
}
