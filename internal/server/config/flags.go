package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/userservice/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   token HMAC secret key
//	-t int      token validity, minutes
//	-k string   token store: postgres, redis or memory
//	-r string   Redis address
//	-p string   password hasher: bcrypt or argon2id
//	-l          answer every response envelope with HTTP 200
//	-v string   log level
//
// Unknown flags are skipped so that other components (the -c/-config JSON
// loader, admin subcommands) can share os.Args.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-d", "-s", "-t", "-k", "-r", "-p", "-l", "-v"},
		"-l")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity duration (in minutes)")
	fs.StringVar(&config.TokenStore, "k", config.TokenStore, "token store (postgres|redis|memory)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.PasswordHasher, "p", config.PasswordHasher, "password hasher (bcrypt|argon2id)")
	fs.BoolVar(&config.LegacyStatusCodes, "l", config.LegacyStatusCodes, "always answer with HTTP 200")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -t overrides only when given.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		}
	})
}
