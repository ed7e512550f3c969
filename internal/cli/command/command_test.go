package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/stowage-go/internal/manager"
)

// runCLI runs the app against dir and returns stdout.
func runCLI(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()

	app := App()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"stowage", "--data-dir", dir, "--log-level", "error"}, args...)
	err := app.Run(full)
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dir, "", args...)
	if err != nil {
		t.Fatalf("%v: error = %v", args, err)
	}
	return out
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "stowage" {
		t.Errorf("Name = %q, want stowage", app.Name)
	}

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, name := range []string{"get", "set", "del", "has", "keys", "clear", "stats", "config", "watch", "version"} {
		if !names[name] {
			t.Errorf("missing command: %s", name)
		}
	}
}

func TestSetGet_PersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	mustRun(t, dir, "set", "draft:1", `{"title":"notes","words":120}`)

	out := mustRun(t, dir, "get", "draft:1")
	if strings.TrimSpace(out) != `{"title":"notes","words":120}` {
		t.Errorf("get (table) = %q", out)
	}

	out = mustRun(t, dir, "-o", "yaml", "get", "draft:1")
	if !strings.Contains(out, "title: notes") {
		t.Errorf("get (yaml) = %q", out)
	}
}

func TestSet_StringAndStdin(t *testing.T) {
	dir := t.TempDir()

	mustRun(t, dir, "set", "greeting", "hello world")
	if out := mustRun(t, dir, "get", "greeting"); strings.TrimSpace(out) != `"hello world"` {
		t.Errorf("get greeting = %q", out)
	}

	mustRun(t, dir, "set", "--string", "n", "42")
	if out := mustRun(t, dir, "get", "n"); strings.TrimSpace(out) != `"42"` {
		t.Errorf("get n = %q, want quoted string", out)
	}

	if _, err := runCLI(t, dir, "[1,2,3]\n", "set", "--ttl", "1h", "list", "-"); err != nil {
		t.Fatalf("set from stdin: %v", err)
	}
	if out := mustRun(t, dir, "get", "list"); strings.TrimSpace(out) != `[1,2,3]` {
		t.Errorf("get list = %q", out)
	}
}

func TestGet_Missing(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "", "get", "nope")
	if exitCode(err) != 3 {
		t.Errorf("get missing: err = %v, want exit code 3", err)
	}

	_, err = runCLI(t, t.TempDir(), "", "get")
	if exitCode(err) != 2 {
		t.Errorf("get without key: err = %v, want exit code 2", err)
	}
}

func TestKeysHasDelete(t *testing.T) {
	dir := t.TempDir()
	for _, k := range []string{"draft:a", "draft:b", "pref:theme"} {
		mustRun(t, dir, "set", k, "1")
	}

	out := mustRun(t, dir, "-o", "json", "keys", "--prefix", "draft:")
	var keys []string
	if err := json.Unmarshal([]byte(out), &keys); err != nil {
		t.Fatalf("keys output %q: %v", out, err)
	}
	if len(keys) != 2 || keys[0] != "draft:a" || keys[1] != "draft:b" {
		t.Errorf("keys = %v, want [draft:a draft:b]", keys)
	}

	if out := mustRun(t, dir, "has", "pref:theme"); strings.TrimSpace(out) != "true" {
		t.Errorf("has = %q, want true", out)
	}

	out = mustRun(t, dir, "-o", "json", "del", "draft:a", "draft:b")
	var deleted map[string]bool
	if err := json.Unmarshal([]byte(out), &deleted); err != nil {
		t.Fatalf("del output %q: %v", out, err)
	}
	if !deleted["draft:a"] || !deleted["draft:b"] {
		t.Errorf("del = %v", deleted)
	}

	mustRun(t, dir, "del", "pref:theme")
	if out := mustRun(t, dir, "has", "pref:theme"); strings.TrimSpace(out) != "false" {
		t.Errorf("has after del = %q, want false", out)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "set", "a", "1")

	if _, err := runCLI(t, dir, "", "clear"); exitCode(err) != 2 {
		t.Errorf("clear without --yes: err = %v, want exit code 2", err)
	}

	mustRun(t, dir, "clear", "--yes")
	if out := mustRun(t, dir, "-o", "json", "keys"); strings.TrimSpace(out) != "[]" {
		t.Errorf("keys after clear = %q, want []", out)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "set", "a", `"x"`)

	out := mustRun(t, dir, "-o", "json", "stats")
	var stats manager.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats output %q: %v", out, err)
	}
	if stats.Primary != "indexedDB" || len(stats.Adapters) != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Adapters[0].ItemCount != 1 {
		t.Errorf("primary items = %d, want 1", stats.Adapters[0].ItemCount)
	}

	out = mustRun(t, dir, "stats")
	if !strings.HasPrefix(out, "ADAPTER") || !strings.Contains(out, "primary") {
		t.Errorf("stats table = %q", out)
	}
}

func TestFallbackFlags(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "--primary", "localStorage", "--fallback", "cache", "--fallback", "memory", "-o", "json", "stats")
	var stats manager.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats output %q: %v", out, err)
	}
	if stats.Primary != "localStorage" || len(stats.Fallbacks) != 2 || stats.Fallbacks[0] != "cache" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestConfigSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stowage.yaml")
	content := "manager:\n  namespace: notes\n  primary: sessionStorage\nlog:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("STOWAGE_MANAGER_DEFAULT_TTL", "2h")

	out := mustRun(t, dir, "--config", path, "--primary", "memory", "config")
	for _, want := range []string{"namespace: notes", "primary: memory", "default_ttl: 2h0m0s", "level: error"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "", "--primary", "webSQL", "keys")
	if exitCode(err) != 2 {
		t.Errorf("err = %v, want exit code 2", err)
	}

	_, err = runCLI(t, t.TempDir(), "", "-o", "xml", "version")
	if exitCode(err) != 2 {
		t.Errorf("bad output format: err = %v, want exit code 2", err)
	}
}

func TestVersion(t *testing.T) {
	out := mustRun(t, t.TempDir(), "-o", "json", "version")
	if !strings.Contains(out, `"version"`) || !strings.Contains(out, `"go_version"`) {
		t.Errorf("version = %q", out)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw   string
		force bool
		want  string
	}{
		{`{"a":1}`, false, `{"a":1}`},
		{`42`, false, `42`},
		{`42`, true, `"42"`},
		{`not json`, false, `"not json"`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(parseValue(tt.raw, tt.force))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(b) != tt.want {
			t.Errorf("parseValue(%q, %v) = %s, want %s", tt.raw, tt.force, b, tt.want)
		}
	}
}
