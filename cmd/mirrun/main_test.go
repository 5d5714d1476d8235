package main

import "testing"

func TestRunNoArgsPrintsUsageAndFails(t *testing.T) {
	if code := run(nil); code != 1 {
		t.Fatalf("run(nil) = %d, want 1", code)
	}
}

func TestRunHelpSucceeds(t *testing.T) {
	if code := run([]string{"--help"}); code != 0 {
		t.Fatalf("run(--help) = %d, want 0", code)
	}
	if code := run([]string{"-h"}); code != 0 {
		t.Fatalf("run(-h) = %d, want 0", code)
	}
}

func TestRunVersionSucceeds(t *testing.T) {
	if code := run([]string{"--version"}); code != 0 {
		t.Fatalf("run(--version) = %d, want 0", code)
	}
}

func TestRunTooManyArgsFails(t *testing.T) {
	if code := run([]string{"a.yaml", "extra"}); code != 1 {
		t.Fatalf("run with extra args = %d, want 1", code)
	}
}

func TestRunMissingFileFails(t *testing.T) {
	if code := run([]string{"/nonexistent/module-tree.yaml"}); code != 1 {
		t.Fatalf("run with a nonexistent path = %d, want 1", code)
	}
}
