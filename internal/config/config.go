// Package config provides layered configuration for the torqd host binary:
// TOML file, then TORQD__-prefixed environment variables, then CLI flags,
// each layer overriding the one before it. Grounded on the teacher's
// internal/util.ConfigStore/NewConfigStore (file → env → CLI precedence,
// mergeMaps flattening nested TOML tables into dotted keys), narrowed from
// a generic map[string]interface{} bag to the fixed set of fields torqd
// actually needs.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the resolved configuration for a torqd process.
type Config struct {
	LogLevel        string // trace|debug|info|warn|error|none
	LogFile         string // empty means stderr
	LogColor        bool
	Workers         int // executor worker-pool size (internal/actor.Executor)
	InstructionBudget int // klvm.Machine.Compute budget per turn
	ListenAddr      string
}

// Defaults mirrors the teacher's fallback constants, scaled to this runtime.
func Defaults() Config {
	return Config{
		LogLevel:          "info",
		LogColor:          true,
		Workers:           4,
		InstructionBudget: 10000,
		ListenAddr:        "127.0.0.1:7400",
	}
}

// fileValues loads a TOML file at path into a flattened dotted-key map, the
// way the teacher's NewConfigStore loads slug.toml — silently skipping a
// missing file rather than failing startup over it.
func fileValues(path string) map[string]string {
	out := make(map[string]string)
	if path == "" {
		return out
	}
	if _, err := os.Stat(path); err != nil {
		return out
	}
	var data map[string]interface{}
	if _, err := toml.DecodeFile(path, &data); err != nil {
		return out
	}
	mergeMaps(out, data, "")
	return out
}

func mergeMaps(dest map[string]string, src map[string]interface{}, prefix string) {
	for k, v := range src {
		fullKey := k
		if prefix != "" {
			fullKey = prefix + "." + k
		}
		if subMap, ok := v.(map[string]interface{}); ok {
			mergeMaps(dest, subMap, fullKey)
			continue
		}
		dest[fullKey] = toStringValue(v)
	}
}

func toStringValue(v interface{}) string {
	switch vv := v.(type) {
	case string:
		return vv
	case int64:
		return strconv.FormatInt(vv, 10)
	case bool:
		return strconv.FormatBool(vv)
	default:
		return ""
	}
}

// envValues scans os.Environ for the TORQD__ prefix, mapping
// TORQD__log__level -> log.level, matching the teacher's SLUG__ convention.
func envValues() map[string]string {
	out := make(map[string]string)
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "TORQD__") {
			continue
		}
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimPrefix(pair[0], "TORQD__")
		key = strings.ReplaceAll(key, "__", ".")
		out[key] = pair[1]
	}
	return out
}

// Flags carries CLI-supplied overrides; Load applies only the flags the
// caller actually set (zero value means "not set" for these torqd flags).
type Flags struct {
	LogLevel          string
	LogFile           string
	Workers           int
	InstructionBudget int
	ListenAddr        string
}

// Load resolves a Config from configPath (may be ""), the process
// environment, and flags, in that ascending precedence order — exactly the
// teacher's three-layer merge, narrowed to typed fields instead of a
// map[string]interface{} bag.
func Load(configPath string, flags Flags) Config {
	cfg := Defaults()

	applyDotted(&cfg, fileValues(configPath))
	applyDotted(&cfg, envValues())

	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		cfg.LogFile = flags.LogFile
	}
	if flags.Workers != 0 {
		cfg.Workers = flags.Workers
	}
	if flags.InstructionBudget != 0 {
		cfg.InstructionBudget = flags.InstructionBudget
	}
	if flags.ListenAddr != "" {
		cfg.ListenAddr = flags.ListenAddr
	}

	return cfg
}

func applyDotted(cfg *Config, values map[string]string) {
	for key, v := range values {
		switch key {
		case "log.level":
			cfg.LogLevel = v
		case "log.file":
			cfg.LogFile = v
		case "log.color":
			if b, err := strconv.ParseBool(v); err == nil {
				cfg.LogColor = b
			}
		case "workers":
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Workers = n
			}
		case "instruction_budget":
			if n, err := strconv.Atoi(v); err == nil {
				cfg.InstructionBudget = n
			}
		case "listen_addr":
			cfg.ListenAddr = v
		}
	}
}

// DefaultPath returns the conventional config file location relative to
// root, matching the teacher's filepath.Join(rootPath, "slug.toml").
func DefaultPath(root string) string {
	if root == "" {
		return ""
	}
	return filepath.Join(root, "torqd.toml")
}
