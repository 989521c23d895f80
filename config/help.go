package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
  Hayago tracking service

  Usage:
    tracker [-config-path config.yaml]

  Configuration is read from the YAML file, overridable by environment
  variables (DATABASE_HOST, AUTHORITY_BASE_URL, SYNC_IMMEDIATE_PUSH, ...).
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig dumps the effective configuration at startup.
// Credentials are not printed.
func PrintConfig(cfg *Config) {
	fmt.Printf("server:      port=%s\n", cfg.Server.Port)
	fmt.Printf("database:    host=%s port=%s db=%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	fmt.Printf("authority:   url=%s timeout=%s\n", cfg.Authority.BaseURL, cfg.Authority.Timeout)
	fmt.Printf("sync:        batch=%d push=%s\n", cfg.Sync.ReplayBatchSize, cfg.Sync.PushMode())
	fmt.Printf("redis:       addr=%s\n", cfg.Redis.Addr)
	fmt.Printf("rabbitmq:    enabled=%t\n", cfg.RabbitMQ.Enabled)
	fmt.Printf("nominatim:   url=%s\n", cfg.Nominatim.BaseURL)
}
