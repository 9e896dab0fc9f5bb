package cfg

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	// Input/output locations
	RootDir      string `long:"root-dir" env:"ROOT_DIR" default:"./chat_records" description:"Root directory containing exported chat-log JSON files"`
	OutputDir    string `long:"output-dir" env:"OUTPUT_DIR" default:"." description:"Directory for merged dataset, link list and failure report"`
	DownloadsDir string `long:"downloads-dir" env:"DOWNLOADS_DIR" default:"./downloads" description:"Directory images are saved under, keyed by date"`
	ManifestPath string `long:"manifest-path" env:"MANIFEST_PATH" default:"./harvest.db" description:"Path to the SQLite run manifest database"`

	// HTTP metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for image requests"`

	// Application metadata
	ConfigFile string `long:"config" env:"CONFIG_FILE" description:"Optional YAML config file (defaults to ./harvest.yml if present)"`
	Debug      bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		RootDir:      raw.RootDir,
		OutputDir:    raw.OutputDir,
		DownloadsDir: raw.DownloadsDir,
		ManifestPath: raw.ManifestPath,
		UserAgent:    raw.UserAgent,
		ConfigFile:   raw.ConfigFile,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := applyConfigFile(cfg, &raw, parser); err != nil {
		return nil, err
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// applyConfigFile overlays values from the optional YAML file onto fields the
// operator left at their built-in defaults. Flags and environment variables
// always take precedence over the file.
func applyConfigFile(cfg *Cfg, raw *rawCfg, parser *flags.Parser) error {
	path := raw.ConfigFile
	if path == "" {
		if _, err := os.Stat("harvest.yml"); err != nil {
			return nil
		}
		path = "harvest.yml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file fileCfg
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.RootDir != "" && isDefault(parser, "root-dir") {
		cfg.RootDir = file.RootDir
	}
	if file.OutputDir != "" && isDefault(parser, "output-dir") {
		cfg.OutputDir = file.OutputDir
	}
	if file.DownloadsDir != "" && isDefault(parser, "downloads-dir") {
		cfg.DownloadsDir = file.DownloadsDir
	}
	if file.ManifestPath != "" && isDefault(parser, "manifest-path") {
		cfg.ManifestPath = file.ManifestPath
	}
	if file.UserAgent != "" && isDefault(parser, "user-agent") {
		cfg.UserAgent = file.UserAgent
	}

	return nil
}

func isDefault(parser *flags.Parser, longName string) bool {
	opt := parser.FindOptionByLongName(longName)
	if opt == nil {
		return true
	}
	return !opt.IsSet() || opt.IsSetDefault()
}
