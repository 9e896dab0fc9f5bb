package cfg

type Cfg struct {
	// Input/output locations
	RootDir      string
	OutputDir    string
	DownloadsDir string
	ManifestPath string

	// HTTP metadata
	UserAgent string

	// Application metadata
	ConfigFile string
	Debug      bool
	Version    string
}

// fileCfg is the optional YAML config file shape. File values act as
// defaults; environment variables and command-line flags win.
type fileCfg struct {
	RootDir      string `yaml:"root_dir"`
	OutputDir    string `yaml:"output_dir"`
	DownloadsDir string `yaml:"downloads_dir"`
	ManifestPath string `yaml:"manifest_path"`
	UserAgent    string `yaml:"user_agent"`
}
