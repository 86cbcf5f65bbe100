package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	configDirName  = ".architect"
	configFileName = "config.json"
)

// cliSettings mirrors the subset of config.Settings the config command can
// edit. It stays a plain JSON file so the loader picks it up from the home
// directory.
type cliSettings struct {
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	BaseURL       string `json:"base_url,omitempty"`
	Workspace     string `json:"workspace,omitempty"`
	ImageDir      string `json:"image_dir,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

func (c *cliSettings) normalize() {
	if c == nil {
		return
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Model = strings.TrimSpace(c.Model)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.Workspace = strings.TrimSpace(c.Workspace)
	c.ImageDir = strings.TrimSpace(c.ImageDir)
}

func configCommand(argv []string, streams ioStreams) error {
	set := flag.NewFlagSet("config", flag.ContinueOnError)
	set.SetOutput(streams.err)
	configFlag := set.String("config", defaultConfigPath(), "Path to CLI config file.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: architect config [flags] <init|set|get|list> ...")
		fmt.Fprintln(streams.err, "\nCommands:")
		fmt.Fprintln(streams.err, "  init             Create a new config file with defaults")
		fmt.Fprintln(streams.err, "  set key value    Update a single key")
		fmt.Fprintln(streams.err, "  get key          Print the value of a key")
		fmt.Fprintln(streams.err, "  list             Show all configuration values")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	cfgPath := *configFlag
	args := set.Args()
	if len(args) == 0 {
		set.Usage()
		return errors.New("config expects a subcommand")
	}
	switch args[0] {
	case "init":
		return configInit(cfgPath, streams.out)
	case "set":
		return configSet(cfgPath, args[1:], streams.out)
	case "get":
		return configGet(cfgPath, args[1:], streams.out)
	case "list":
		return configList(cfgPath, streams.out)
	default:
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func configInit(path string, out io.Writer) error {
	resolved, err := expandConfigPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); err == nil {
		return fmt.Errorf("config already exists at %s", resolved)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check config: %w", err)
	}
	if err := saveCLISettings(resolved, cliSettings{}); err != nil {
		return err
	}
	if out != nil {
		fmt.Fprintf(out, "created %s\n", resolved)
	}
	return nil
}

func configSet(path string, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New("config set requires <key> <value>")
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))
	value := strings.TrimSpace(strings.Join(args[1:], " "))
	resolved, err := expandConfigPath(path)
	if err != nil {
		return err
	}
	cfg, err := loadCLISettings(resolved)
	if err != nil {
		return err
	}
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "api_key":
		cfg.APIKey = value
	case "base_url":
		cfg.BaseURL = value
	case "workspace":
		cfg.Workspace = value
	case "image_dir":
		cfg.ImageDir = value
	case "max_iterations":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("max_iterations must be a non-negative integer, got %q", value)
		}
		cfg.MaxIterations = n
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := saveCLISettings(resolved, cfg); err != nil {
		return err
	}
	if out != nil {
		fmt.Fprintf(out, "%s updated\n", key)
	}
	return nil
}

func configGet(path string, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("config get requires a key")
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))
	resolved, err := expandConfigPath(path)
	if err != nil {
		return err
	}
	cfg, err := loadCLISettings(resolved)
	if err != nil {
		return err
	}
	value, err := configValue(cfg, key)
	if err != nil {
		return err
	}
	if out != nil {
		fmt.Fprintln(out, value)
	}
	return nil
}

func configList(path string, out io.Writer) error {
	resolved, err := expandConfigPath(path)
	if err != nil {
		return err
	}
	cfg, err := loadCLISettings(resolved)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	fmt.Fprintf(out, "provider=%s\n", cfg.Provider)
	fmt.Fprintf(out, "model=%s\n", cfg.Model)
	fmt.Fprintf(out, "api_key=%s\n", cfg.APIKey)
	fmt.Fprintf(out, "base_url=%s\n", cfg.BaseURL)
	fmt.Fprintf(out, "workspace=%s\n", cfg.Workspace)
	fmt.Fprintf(out, "image_dir=%s\n", cfg.ImageDir)
	fmt.Fprintf(out, "max_iterations=%d\n", cfg.MaxIterations)
	return nil
}

func configValue(cfg cliSettings, key string) (string, error) {
	switch key {
	case "provider":
		return cfg.Provider, nil
	case "model":
		return cfg.Model, nil
	case "api_key":
		return cfg.APIKey, nil
	case "base_url":
		return cfg.BaseURL, nil
	case "workspace":
		return cfg.Workspace, nil
	case "image_dir":
		return cfg.ImageDir, nil
	case "max_iterations":
		return strconv.Itoa(cfg.MaxIterations), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

func loadCLISettings(path string) (cliSettings, error) {
	resolved, err := expandConfigPath(path)
	if err != nil {
		return cliSettings{}, err
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return cliSettings{}, nil
	}
	if err != nil {
		return cliSettings{}, fmt.Errorf("read config: %w", err)
	}
	var cfg cliSettings
	if len(data) > 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cliSettings{}, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.normalize()
	return cfg, nil
}

func saveCLISettings(path string, cfg cliSettings) error {
	resolved, err := expandConfigPath(path)
	if err != nil {
		return err
	}
	cfg.normalize()
	if err := ensureConfigDir(resolved); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(resolved, data, 0o600)
}

func ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", configFileName)
	}
	return filepath.Join(home, configDirName, configFileName)
}

func expandConfigPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultConfigPath()
	}
	if strings.HasPrefix(trimmed, "~/") || trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(trimmed, "~"), "/"))
	}
	clean := filepath.Clean(trimmed)
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	return filepath.Abs(clean)
}
