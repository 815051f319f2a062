// Command migrate applies or repairs the database schema.
//
//	migrate up
//	migrate force <version>
package main

import (
	"fmt"
	"os"
	"strconv"

	"healthcare-services/internal/config"
	"healthcare-services/internal/store"
	"healthcare-services/pkg/logging"
)

func main() {
	cfg := config.Load("")
	logger := logging.New(cfg.LogLevel)

	if err := run(cfg.DatabaseURL, os.Args[1:]); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrate done")
}

func run(databaseURL string, args []string) error {
	if len(args) == 0 {
		args = []string{"up"}
	}
	switch args[0] {
	case "up":
		return store.Migrate(databaseURL)
	case "force":
		if len(args) != 2 {
			return fmt.Errorf("usage: migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad version %q: %w", args[1], err)
		}
		return store.ForceVersion(databaseURL, v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
