package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	defer func() { Version, Commit, Date = oldV, oldC, oldD }()

	Version, Commit, Date = "1.2.3", "abc123", "2026-01-02"
	want := "cleandl 1.2.3 (commit abc123, built 2026-01-02)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
