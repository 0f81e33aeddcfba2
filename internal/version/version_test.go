package version

import "testing"

func TestGetCurrentVersion(t *testing.T) {
	if got := GetCurrentVersion("prod"); got != Version {
		t.Errorf("prod version = %q, want %q", got, Version)
	}
	if got := GetCurrentVersion("dev"); got != DevVersion {
		t.Errorf("dev version = %q, want %q", got, DevVersion)
	}
	if got := GetCurrentVersion("demo"); got != DevVersion {
		t.Errorf("demo version = %q, want %q", got, DevVersion)
	}
}

func TestString(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() {
		Version, GitCommit = origVersion, origCommit
	}()

	Version = "0.3.0"

	GitCommit = "unknown"
	if got := String(); got != "0.3.0" {
		t.Errorf("String() = %q, want %q", got, "0.3.0")
	}

	GitCommit = "a1b2c3d4e5f60718"
	if got := String(); got != "0.3.0-a1b2c3d4" {
		t.Errorf("String() = %q, want %q", got, "0.3.0-a1b2c3d4")
	}
}
