package config

// Config is the process configuration. Durations are Go duration strings
// ("500ms", "10s", "1m"); an empty string means the default.
type Config struct {
	Logging       LoggingConfig       `json:"logging"`
	API           APIConfig           `json:"api"`
	Settings      SettingsConfig      `json:"settings"`
	OctoPrint     OctoPrintConfig     `json:"octoprint"`
	LabelPrinter  LabelPrinterConfig  `json:"label_printer"`
	Scripts       ScriptsConfig       `json:"scripts"`
	ProgressWatch ProgressWatchConfig `json:"progress_watch"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// APIConfig controls the host callback HTTP API.
//
// AdminToken guards credential and script fields of the settings document;
// an empty token disables admin access. It is never logged.
type APIConfig struct {
	Addr            string `json:"addr"`
	AdminToken      string `json:"admin_token,omitempty"`
	AllowAllOrigins bool   `json:"allow_all_origins,omitempty"`
	RequestTimeout  string `json:"request_timeout,omitempty"`
}

// SettingsConfig selects the settings store.
//
// Example:
//
//	"settings": { "driver": "file", "path": "./octolabel_settings.json" }
type SettingsConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// OctoPrintConfig points at the print server used for telemetry. An empty
// URL disables enrichment.
type OctoPrintConfig struct {
	URL     string `json:"url"`
	APIKey  string `json:"api_key,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

type LabelPrinterConfig struct {
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type ScriptsConfig struct {
	// Timeout bounds one script run; "0s" disables the bound.
	Timeout string `json:"timeout,omitempty"`
}

type ProgressWatchConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

const (
	DefaultAPIAddr       = "127.0.0.1:8089"
	DefaultSettingsPath  = "./octolabel_settings.json"
	DefaultLogPath       = "./octolabel.log"
	DefaultOctoPrintURL  = "http://127.0.0.1:5000"
	DefaultWatchSchedule = "@every 10s"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Logging:   LoggingConfig{Level: "info", Console: true},
		OctoPrint: OctoPrintConfig{URL: DefaultOctoPrintURL},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File.Enabled && cfg.Logging.File.Path == "" {
		cfg.Logging.File.Path = DefaultLogPath
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = DefaultAPIAddr
	}
	if cfg.Settings.Driver == "" {
		cfg.Settings.Driver = "file"
	}
	if cfg.Settings.Path == "" {
		cfg.Settings.Path = DefaultSettingsPath
	}
	if cfg.ProgressWatch.Schedule == "" {
		cfg.ProgressWatch.Schedule = DefaultWatchSchedule
	}
}
