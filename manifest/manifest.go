// Package manifest handles clove.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "clove.toml"

// DefaultPort is the port the eval server listens on when none is configured.
const DefaultPort = 4400

// Manifest represents a clove.toml configuration.
type Manifest struct {
	VM       VMConfig       `toml:"vm"`
	Compiler CompilerConfig `toml:"compiler"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`

	// Dir is the directory containing the clove.toml file (set at load time).
	Dir string `toml:"-"`
}

// VMConfig configures execution.
type VMConfig struct {
	StackLimit int  `toml:"stack-limit"`
	Trace      bool `toml:"trace"`
}

// CompilerConfig configures compilation.
type CompilerConfig struct {
	Disassemble bool `toml:"disassemble"`
}

// CacheConfig configures the compiled chunk cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ServerConfig configures the eval server.
type ServerConfig struct {
	Port int `toml:"port"`
}

// LogConfig configures logging. Verbosity is handed to commonlog.Configure;
// higher values log more.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no clove.toml is present.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.VM.StackLimit <= 0 {
		m.VM.StackLimit = 256
	}
	if m.Server.Port == 0 {
		m.Server.Port = DefaultPort
	}
}

// Load parses a clove.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path. Relative paths inside it
// resolve against its directory.
func LoadFile(path string) (*Manifest, error) {
	dir := filepath.Dir(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.VM.StackLimit < 0 {
		return nil, fmt.Errorf("%s: vm.stack-limit must be positive, got %d", path, m.VM.StackLimit)
	}
	m.applyDefaults()

	return &m, nil
}

// FindAndLoad walks up from startDir to find a clove.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CachePath returns the configured cache location resolved against the
// manifest directory, or "" when none is set.
func (m *Manifest) CachePath() string {
	if m.Cache.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// LogFile returns the configured log file resolved against the manifest
// directory, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
