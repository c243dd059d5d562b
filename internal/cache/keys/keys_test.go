package keys

import (
	"regexp"
	"strings"
	"testing"
)

var keyChars = regexp.MustCompile(`^[A-Za-z0-9:_=,.\-]+$`)

func TestDeterminism_SameInputsSameKey(t *testing.T) {
	body := []byte{1, 2, 3}
	k1 := Key("grid_disk", "flatten=true&k=2", body)
	k2 := Key("grid_disk", "flatten=true&k=2", body)
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !strings.HasPrefix(k1, Prefix+":grid_disk:") {
		t.Fatalf("unexpected key layout: %s", k1)
	}
	if !keyChars.MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
}

func TestDifference(t *testing.T) {
	cases := []struct {
		name   string
		op, p  string
		body   []byte
		op2, q string
		body2  []byte
	}{
		{"op", "grid_disk", "k=1", []byte("x"), "compact", "k=1", []byte("x")},
		{"params", "grid_disk", "k=1", []byte("x"), "grid_disk", "k=2", []byte("x")},
		{"body", "grid_disk", "k=1", []byte("x"), "grid_disk", "k=1", []byte("y")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if Key(tc.op, tc.p, tc.body) == Key(tc.op2, tc.q, tc.body2) {
				t.Fatalf("keys must differ")
			}
		})
	}
}

func TestLongParamsAreTruncatedButDistinct(t *testing.T) {
	long := "geometry=" + strings.Repeat("1,", 200)
	k1 := Key("cells_intersect_geometry", long+"a", nil)
	k2 := Key("cells_intersect_geometry", long+"b", nil)
	if k1 == k2 {
		t.Fatalf("params hash must keep truncated keys distinct")
	}
	if len(k1) > 300 {
		t.Fatalf("key too long: %d", len(k1))
	}
}

func TestSanitizeCollapsesRuns(t *testing.T) {
	if got := sanitizeForKey("a  b::c"); got != "a_b-c" {
		t.Fatalf("sanitizeForKey = %q", got)
	}
}
