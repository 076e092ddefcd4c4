// Package main is the entry point for the sourcefetch CLI.
package main

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ukstats/sourcefetch/cmd/sourcefetch/app"
	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/logger"
)

// getLogLevel reads SOURCEFETCH_LOG_LEVEL, falling back to LOG_LEVEL.
// Unknown values select the info level.
func getLogLevel() string {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	return levelStr
}

func main() {
	// Logs go to stderr so stdout only carries command output
	logger.Initialize(getLogLevel(), false)

	err := app.NewRootCmd().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
