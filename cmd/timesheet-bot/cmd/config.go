package cmd

import (
	"os"
	"timesheet-backend/internal/bot"
	"timesheet-backend/internal/bot/quarter"
	"timesheet-backend/internal/bot/timesheet"
	"timesheet-backend/lib/configutil"
	"timesheet-backend/lib/serviceutil"
)

// Config is the on-disk CLI configuration. Everything is optional: a missing
// file falls back to the built-in quarter table and environment credentials.
type Config struct {
	Bot bot.Config `json:"bot"`
	// QuartersFile points at an alternate quarter table.
	QuartersFile string `json:"quarters_file"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if os.IsNotExist(err) {
		return Config{}
	}
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func loadQuarters(cfg Config) quarter.Config {
	if cfg.QuartersFile == "" {
		return quarter.Default()
	}
	quarters, err := quarter.Load(cfg.QuartersFile)
	if err != nil {
		serviceutil.Fatal("failed to load quarter definitions", err)
	}
	return quarters
}

// loadCredentials prefers environment variables over the config file so
// passwords do not have to live on disk.
func loadCredentials(cfg Config) timesheet.Credentials {
	creds := timesheet.Credentials{Email: cfg.Email, Password: cfg.Password}
	if email, ok := os.LookupEnv("TIMESHEET_EMAIL"); ok {
		creds.Email = email
	}
	if password, ok := os.LookupEnv("TIMESHEET_PASSWORD"); ok {
		creds.Password = password
	}
	return creds
}
