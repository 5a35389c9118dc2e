package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/daybook/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-m bool     fall back to the in-memory store when -d is empty
//	-b int      max records per push
//	-s int      max request body size, bytes
//	-l string   log level
//
// os.Args is filtered down to these flags first so -c and unknown flags do
// not make the parse fail.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-b", "-s", "-l"}, "-m")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.BoolVar(&config.UseMemoryStore, "m", config.UseMemoryStore, "use in-memory store when no DSN is given")
	fs.IntVar(&config.MaxPushBatch, "b", config.MaxPushBatch, "max records per push request")
	fs.Int64Var(&config.MaxBodyBytes, "s", config.MaxBodyBytes, "max request body size in bytes")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
