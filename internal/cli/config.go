package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the CLI's own settings file. Anything left empty falls back to
// the MINIO_* and FFMPEG_* environment variables.
type Config struct {
	CallerID string `yaml:"caller_id,omitempty"`
	Folder   string `yaml:"folder,omitempty"`
	Parallel int    `yaml:"parallel,omitempty"`

	Endpoint      string `yaml:"endpoint,omitempty"`
	AccessKey     string `yaml:"access_key,omitempty"`
	SecretKey     string `yaml:"secret_key,omitempty"`
	Bucket        string `yaml:"bucket,omitempty"`
	UseSSL        bool   `yaml:"use_ssl,omitempty"`
	Region        string `yaml:"region,omitempty"`
	PublicBaseURL string `yaml:"public_base_url,omitempty"`

	FFmpegPath  string `yaml:"ffmpeg_path,omitempty"`
	FFprobePath string `yaml:"ffprobe_path,omitempty"`
}

const defaultParallel = 4

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mediagate.yaml"), nil
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	path, err := configPath()
	if err == nil {
		data, readErr := os.ReadFile(path)
		if readErr == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(readErr) {
			return nil, readErr
		}
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("MINIO_ENDPOINT")
	}
	if cfg.AccessKey == "" {
		cfg.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = os.Getenv("MINIO_BUCKET")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "media"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = os.Getenv("FFMPEG_PATH")
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = os.Getenv("FFPROBE_PATH")
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = defaultParallel
	}
	if cfg.CallerID == "" {
		cfg.CallerID = "cli"
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("no storage endpoint configured (set endpoint in ~/.mediagate.yaml or MINIO_ENDPOINT)")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("storage credentials are not configured")
	}
	return nil
}
