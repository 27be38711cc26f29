// Package config loads dsd's JSONC configuration.
//
// Precedence, highest last:
//
//  1. defaults
//  2. global file: $XDG_CONFIG_HOME/dsd/config.json, else ~/.config/dsd/config.json
//  3. project file .dsd.json in the working directory, or the file given
//     with -c/--config, which must exist
//  4. command-line overrides
//
// Files may contain comments and trailing commas.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/dsd/internal/logging"
	"github.com/calvinalkan/dsd/pkg/fs"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".dsd.json"

// Errors returned by [Load].
var (
	ErrInvalid      = errors.New("invalid config")
	ErrFileNotFound = errors.New("config file not found")
	ErrFileRead     = errors.New("cannot read config file")
)

// Config is the resolved configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// VerifyAfterWrite runs verification after add and delete.
	VerifyAfterWrite bool `json:"verify_after_write"`

	// HistoryFile is where the interactive shell keeps its history. Empty
	// disables history.
	HistoryFile string `json:"history_file"`

	// EffectiveCwd is the absolute working directory (from -C or os.Getwd).
	EffectiveCwd string `json:"-"`

	Sources Sources `json:"-"`
}

// Sources records which files contributed to a [Config].
type Sources struct {
	Global  string // empty if no global file was loaded
	Project string // empty if no project or explicit file was loaded
}

// file is the on-disk shape. Pointers tell "unset" from zero values.
type file struct {
	LogLevel         *string `json:"log_level"`
	VerifyAfterWrite *bool   `json:"verify_after_write"`
	HistoryFile      *string `json:"history_file"`
}

// Default returns the built-in configuration for the given environment.
func Default(env map[string]string) Config {
	cfg := Config{
		LogLevel:         "warn",
		VerifyAfterWrite: true,
	}

	if home := env["HOME"]; home != "" {
		cfg.HistoryFile = filepath.Join(home, ".dsd_history")
	}

	return cfg
}

// Input holds what [Load] needs besides the files themselves.
type Input struct {
	WorkDirOverride  string            // -C/--cwd; os.Getwd when empty
	ConfigPath       string            // -c/--config
	LogLevelOverride string            // set by -v/--verbose
	Env              map[string]string // environment variables
	FS               fs.FS             // defaults to the real filesystem
}

// Load resolves the configuration.
func Load(in Input) (Config, error) {
	fsys := in.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	workDir := in.WorkDirOverride
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}

		workDir = wd
	}

	cfg := Default(in.Env)

	if globalPath := globalPath(in.Env); globalPath != "" {
		f, loaded, err := readFile(fsys, globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, f, in.Env)
			cfg.Sources.Global = globalPath
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false
	if in.ConfigPath != "" {
		projectPath, mustExist = in.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
	}

	f, loaded, err := readFile(fsys, projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, f, in.Env)
		cfg.Sources.Project = projectPath
	}

	if in.LogLevelOverride != "" {
		cfg.LogLevel = in.LogLevelOverride
	}

	_, err = logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	cfg.EffectiveCwd = workDir

	return cfg, nil
}

// globalPath returns the global config location, or "" if neither
// XDG_CONFIG_HOME nor HOME is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "dsd", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "dsd", "config.json")
	}

	return ""
}

func readFile(fsys fs.FS, path string, mustExist bool) (file, bool, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mustExist {
				return file{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}

			return file{}, false, nil
		}

		return file{}, false, fmt.Errorf("%w %s: %w", ErrFileRead, path, err)
	}

	f, err := parse(data)
	if err != nil {
		return file{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return f, true, nil
}

func parse(data []byte) (file, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return file{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	dec := json.NewDecoder(strings.NewReader(string(standardized)))
	dec.DisallowUnknownFields()

	var f file

	err = dec.Decode(&f)
	if err != nil {
		return file{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return f, nil
}

func merge(base Config, f file, env map[string]string) Config {
	if f.LogLevel != nil {
		base.LogLevel = *f.LogLevel
	}

	if f.VerifyAfterWrite != nil {
		base.VerifyAfterWrite = *f.VerifyAfterWrite
	}

	if f.HistoryFile != nil {
		base.HistoryFile = expandHome(*f.HistoryFile, env)
	}

	return base
}

func expandHome(path string, env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return path
	}

	if path == "~" {
		return home
	}

	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}

	return path
}
