// Package config loads and validates the emulator configuration.
//
// Two on-disk forms are accepted, picked by file extension: the legacy
// whitespace-separated key/value format ("config.txt") and a YAML form
// ("config.yaml"). Out-of-range values are clamped to their legal range
// with a logged warning; unknown keys are logged and skipped; only a
// missing or unreadable file, or a YAML file that does not parse, is an
// error.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/coresim/pkg/model"
)

// DefaultPath is the config file the shell loads when none is given.
const DefaultPath = "config.txt"

// Config is the immutable scheduler configuration.
type Config struct {
	NumCPU       int          `yaml:"num-cpu"`
	Scheduler    model.Policy `yaml:"scheduler"`
	Quantum      int          `yaml:"quantum-cycles"`
	BatchFreq    uint64       `yaml:"batch-process-freq"`
	MinIns       int          `yaml:"min-ins"`
	MaxIns       int          `yaml:"max-ins"`
	DelayPerExec uint64       `yaml:"delays-per-exec"`

	// LogDir is where per-process log files are written. Not part of
	// the legacy format; defaults to the working directory.
	LogDir string `yaml:"log-dir"`
}

// Default returns the configuration used when a key is absent.
func Default() Config {
	return Config{
		NumCPU:       1,
		Scheduler:    model.PolicyFCFS,
		Quantum:      1,
		BatchFreq:    1,
		MinIns:       1,
		MaxIns:       5,
		DelayPerExec: 0,
		LogDir:       ".",
	}
}

// Load reads the configuration at path. Files ending in .yaml or .yml
// use the YAML form; everything else parses as the legacy key/value
// format.
func Load(path string, logger *slog.Logger) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path, logger)
	default:
		return loadLegacy(path, logger)
	}
}

func loadYAML(path string, logger *slog.Logger) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.clamp(logger)
	return cfg, nil
}

func loadLegacy(path string, logger *slog.Logger) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)

	readToken := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	for {
		key, ok := readToken()
		if !ok {
			break
		}
		val, ok := readToken()
		if !ok {
			logger.Warn("config key without a value", "key", key)
			break
		}
		val = strings.Trim(val, `"`)

		switch key {
		case "num-cpu":
			cfg.NumCPU = parseInt(key, val, cfg.NumCPU, logger)
		case "scheduler":
			switch strings.ToLower(val) {
			case "fcfs":
				cfg.Scheduler = model.PolicyFCFS
			case "rr":
				cfg.Scheduler = model.PolicyRR
			default:
				logger.Warn("unknown scheduler policy, keeping default", "value", val, "default", cfg.Scheduler)
			}
		case "quantum-cycles":
			cfg.Quantum = parseInt(key, val, cfg.Quantum, logger)
		case "batch-process-freq":
			cfg.BatchFreq = parseUint(key, val, cfg.BatchFreq, logger)
		case "min-ins":
			cfg.MinIns = parseInt(key, val, cfg.MinIns, logger)
		case "max-ins":
			cfg.MaxIns = parseInt(key, val, cfg.MaxIns, logger)
		case "delays-per-exec":
			cfg.DelayPerExec = parseUint(key, val, cfg.DelayPerExec, logger)
		case "log-dir":
			cfg.LogDir = val
		default:
			logger.Warn("unknown config key", "key", key, "value", val)
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.clamp(logger)
	return cfg, nil
}

func parseInt(key, val string, fallback int, logger *slog.Logger) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		logger.Warn("bad integer in config, keeping default", "key", key, "value", val, "default", fallback)
		return fallback
	}
	return n
}

func parseUint(key, val string, fallback uint64, logger *slog.Logger) uint64 {
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		logger.Warn("bad integer in config, keeping default", "key", key, "value", val, "default", fallback)
		return fallback
	}
	return n
}

// clamp forces every field into its legal range, warning on each
// adjustment. Bad values never abort a load.
func (c *Config) clamp(logger *slog.Logger) {
	clampInt := func(key string, v *int, lo, hi int) {
		if *v < lo {
			logger.Warn("config value below range, clamping", "key", key, "value", *v, "min", lo)
			*v = lo
		} else if *v > hi {
			logger.Warn("config value above range, clamping", "key", key, "value", *v, "max", hi)
			*v = hi
		}
	}

	clampInt("num-cpu", &c.NumCPU, 1, 128)
	clampInt("quantum-cycles", &c.Quantum, 1, int(^uint(0)>>1))
	clampInt("min-ins", &c.MinIns, 1, int(^uint(0)>>1))
	clampInt("max-ins", &c.MaxIns, 1, int(^uint(0)>>1))
	if c.MaxIns < c.MinIns {
		logger.Warn("max-ins below min-ins, clamping", "min-ins", c.MinIns, "max-ins", c.MaxIns)
		c.MaxIns = c.MinIns
	}
	if c.BatchFreq < 1 {
		logger.Warn("batch-process-freq below range, clamping", "value", c.BatchFreq, "min", 1)
		c.BatchFreq = 1
	}
	if c.Scheduler != model.PolicyFCFS && c.Scheduler != model.PolicyRR {
		logger.Warn("unknown scheduler policy, defaulting", "value", c.Scheduler, "default", model.PolicyFCFS)
		c.Scheduler = model.PolicyFCFS
	}
	if c.LogDir == "" {
		c.LogDir = "."
	}
}
