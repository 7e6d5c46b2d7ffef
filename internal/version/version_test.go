package version

import "testing"

func TestString(t *testing.T) {
	got := String()
	want := Version + " (" + GitCommit + ", built " + BuildTime + ")"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if Version == "" {
		t.Error("Version should not be empty")
	}
}
