package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
dispatch - marketplace dispatch service

Usage:
  dispatch [flags]

Flags:
  -config-path string   Path to the config yaml file (default "config.yaml")
  -help                 Show this help message

Environment overrides:
  DATABASE_PASSWORD, REDIS_PASSWORD, RABBITMQ_PASSWORD, AUTH_JWT_SECRET, LOG_LEVEL
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
