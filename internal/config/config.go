package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Cache struct {
		// Catalog changes rarely mid-session; roster a little more often.
		// Submissions must stay short: duplicate detection rides on it.
		CatalogTTL     string `yaml:"catalogTtl"`
		RosterTTL      string `yaml:"rosterTtl"`
		SubmissionsTTL string `yaml:"submissionsTtl"`
	} `yaml:"cache"`
	Store struct {
		Timeout       string `yaml:"timeout"`
		RetryAttempts int    `yaml:"retryAttempts"`
		RetryBackoff  string `yaml:"retryBackoff"`
	} `yaml:"store"`
	Game struct {
		BlockSize  int   `yaml:"blockSize"`
		BlockCount int   `yaml:"blockCount"`
		FinalIDs   []int `yaml:"finalIds"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
