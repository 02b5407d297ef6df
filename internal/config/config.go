package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Upload   UploadConfig   `yaml:"upload" envconfig:"UPLOAD"`
	Report   ReportConfig   `yaml:"report" envconfig:"REPORT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// UploadConfig bounds spreadsheet uploads.
type UploadConfig struct {
	MaxFileBytes int64 `yaml:"max_file_bytes" envconfig:"MAX_FILE_BYTES" default:"10485760"`
}

// ReportConfig carries branding and rendering settings.
type ReportConfig struct {
	Institution string `yaml:"institution" envconfig:"INSTITUTION" default:"Crescent Valley Institute of Technology"`
	Department  string `yaml:"department" envconfig:"DEPARTMENT" default:"Office of the Registrar"`
	Title       string `yaml:"title" envconfig:"TITLE" default:"Semester Progress Report"`
	Signatory   string `yaml:"signatory" envconfig:"SIGNATORY" default:"Head of the Department"`

	PassMark         float64 `yaml:"pass_mark" envconfig:"PASS_MARK" default:"40"`
	AttendanceRed    float64 `yaml:"attendance_red" envconfig:"ATTENDANCE_RED" default:"75"`
	AttendanceYellow float64 `yaml:"attendance_yellow" envconfig:"ATTENDANCE_YELLOW" default:"80"`

	ChromePath    string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	RenderTimeout time.Duration `yaml:"render_timeout" envconfig:"RENDER_TIMEOUT" default:"30s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("ACADREPORT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("path setup failed: %w", err)
	}

	return &cfg, nil
}

func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Upload.MaxFileBytes == 0 {
		envConfig.Upload.MaxFileBytes = fileConfig.Upload.MaxFileBytes
	}
	if envConfig.Report.ChromePath == "" {
		envConfig.Report.ChromePath = fileConfig.Report.ChromePath
	}
	return envConfig
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Upload.MaxFileBytes <= 0 {
		return fmt.Errorf("upload max file bytes must be positive")
	}
	if c.Report.PassMark < 0 || c.Report.PassMark > 100 {
		return fmt.Errorf("pass mark must be within [0,100], got %v", c.Report.PassMark)
	}
	if c.Report.AttendanceRed > c.Report.AttendanceYellow {
		return fmt.Errorf("attendance red threshold (%v) must not exceed yellow (%v)",
			c.Report.AttendanceRed, c.Report.AttendanceYellow)
	}

	// Log shippers expect JSON; silently correct rather than fail startup.
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "app.log")
	}

	return nil
}

func (c *Config) ensureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		Upload: UploadConfig{
			MaxFileBytes: 10 << 20,
		},
		Report: ReportConfig{
			Institution:      "Crescent Valley Institute of Technology",
			Department:       "Office of the Registrar",
			Title:            "Semester Progress Report",
			Signatory:        "Head of the Department",
			PassMark:         40,
			AttendanceRed:    75,
			AttendanceYellow: 80,
			RenderTimeout:    30 * time.Second,
		},
	}
}
