package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo, ok bool) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, ok }
	t.Cleanup(func() { readBuildInfo = prev })
}

func withLinkerValues(t *testing.T, v, c, d string) {
	t.Helper()
	pv, pc, pd := version, commit, date
	version, commit, date = v, c, d
	t.Cleanup(func() { version, commit, date = pv, pc, pd })
}

func TestGet_LinkerValuesWin(t *testing.T) {
	withLinkerValues(t, "v1.4.0", "abc123", "2026-04-10")
	withBuildInfo(t, &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "ignored"},
	}}, true)

	got := Get()
	want := BuildInfo{Version: "v1.4.0", Commit: "abc123", Date: "2026-04-10"}
	if got != want {
		t.Fatalf("Get() = %+v, want %+v", got, want)
	}
}

func TestGet_FallsBackToVCSSettings(t *testing.T) {
	withLinkerValues(t, "dev", "unknown", "unknown")
	withBuildInfo(t, &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "deadbeef"},
		{Key: "vcs.time", Value: "2026-04-01T10:00:00Z"},
	}}, true)

	got := Get()
	if got.Commit != "deadbeef" || got.Date != "2026-04-01T10:00:00Z" {
		t.Fatalf("expected vcs values, got %+v", got)
	}
	if got.Version != "dev" {
		t.Fatalf("version must stay as linked, got %q", got.Version)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	withLinkerValues(t, "dev", "unknown", "unknown")
	withBuildInfo(t, nil, false)

	if got := Get(); got.Commit != "unknown" || got.Date != "unknown" {
		t.Fatalf("expected unknown commit and date, got %+v", got)
	}
}

func TestString(t *testing.T) {
	withLinkerValues(t, "v2.0.0", "c0ffee", "2026-05-01")

	s := String()
	for _, part := range []string{"version=v2.0.0", "commit=c0ffee", "date=2026-05-01"} {
		if !strings.Contains(s, part) {
			t.Fatalf("String() = %q, missing %q", s, part)
		}
	}
}
