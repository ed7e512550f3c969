package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Errorf("Get() = %+v, want every field populated", info)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion = %q, want go prefix", info.GoVersion)
	}
}

func TestResolve(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.4",
		Main:      debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	got := resolve(bi, true)
	if got.Version != "dev" {
		t.Errorf("Version = %q, want dev", got.Version)
	}
	if got.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want 0123456789ab", got.Commit)
	}
	if got.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("BuildTime = %q", got.BuildTime)
	}
	if got.GoVersion != "go1.24.4" || !got.Modified {
		t.Errorf("GoVersion/Modified = %q/%v", got.GoVersion, got.Modified)
	}
}

func TestResolve_LdflagsWin(t *testing.T) {
	oldCommit := Commit
	Commit = "release1"
	defer func() { Commit = oldCommit }()

	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	}
	got := resolve(bi, true)
	if got.Commit != "release1" {
		t.Errorf("Commit = %q, want release1", got.Commit)
	}
	if got.Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3 from module info", got.Version)
	}

	if got := resolve(nil, false); got.Commit != "release1" {
		t.Errorf("resolve(nil) Commit = %q", got.Commit)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.Contains(s, Get().Version) || !strings.Contains(s, "built at") {
		t.Errorf("String() = %q", s)
	}
}
