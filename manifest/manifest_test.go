package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[vm]
stack-limit = 64
trace = true

[compiler]
disassemble = true

[cache]
enabled = true
path = ".clove/cache.db"

[server]
port = 9000

[log]
verbosity = 2
file = "clove.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.VM.StackLimit != 64 {
		t.Errorf("vm stack-limit = %d, want 64", m.VM.StackLimit)
	}
	if !m.VM.Trace {
		t.Error("vm trace = false, want true")
	}
	if !m.Compiler.Disassemble {
		t.Error("compiler disassemble = false, want true")
	}
	if !m.Cache.Enabled {
		t.Error("cache enabled = false, want true")
	}
	if m.Server.Port != 9000 {
		t.Errorf("server port = %d, want 9000", m.Server.Port)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if want := filepath.Join(m.Dir, ".clove", "cache.db"); m.CachePath() != want {
		t.Errorf("CachePath() = %q, want %q", m.CachePath(), want)
	}
	if f := m.LogFile(); f == nil || *f != filepath.Join(m.Dir, "clove.log") {
		t.Errorf("LogFile() = %v", f)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[compiler]\ndisassemble = false\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.VM.StackLimit != 256 {
		t.Errorf("default stack-limit = %d, want 256", m.VM.StackLimit)
	}
	if m.Server.Port != DefaultPort {
		t.Errorf("default port = %d, want %d", m.Server.Port, DefaultPort)
	}
	if m.Cache.Enabled {
		t.Error("cache enabled by default")
	}
	if m.CachePath() != "" || m.LogFile() != nil {
		t.Errorf("CachePath() = %q, LogFile() = %v; want unset", m.CachePath(), m.LogFile())
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.VM.StackLimit != 256 || m.Server.Port != DefaultPort {
		t.Errorf("Default() = %+v", m)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[vm]\nstack-size = 10\n")

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "vm.stack-size") {
		t.Errorf("Load error = %v, want unknown key vm.stack-size", err)
	}
}

func TestLoadRejectsNegativeStackLimit(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[vm]\nstack-limit = -1\n")

	if _, err := Load(dir); err == nil {
		t.Error("Load accepted a negative stack-limit")
	}
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[vm\n")

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("Load error = %v, want parse error", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[server]\nport = 1234\n")

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Server.Port != 1234 {
		t.Errorf("server port = %d, want 1234", m.Server.Port)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no clove.toml exists")
	}
}

func TestCachePathAbsolute(t *testing.T) {
	m := &Manifest{Dir: "/app", Cache: CacheConfig{Path: "/var/cache/clove.db"}}
	if got := m.CachePath(); got != "/var/cache/clove.db" {
		t.Errorf("CachePath() = %q", got)
	}
	m.Cache.Path = "cache.db"
	if got := m.CachePath(); got != "/app/cache.db" {
		t.Errorf("CachePath() = %q, want /app/cache.db", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[cache]\npath = \"c.db\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if m.CachePath() != filepath.Join(m.Dir, "c.db") {
		t.Errorf("CachePath() = %q", m.CachePath())
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFile on a missing file succeeded")
	}
}
