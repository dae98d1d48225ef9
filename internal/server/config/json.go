package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/userservice/internal/flagx"
	"github.com/dmitrijs2005/userservice/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept both "1h" strings and integer nanoseconds. Pointer fields tell an
// explicit false or empty value apart from an absent key.
type JsonConfig struct {
	EndpointAddrHTTP      string          `json:"endpoint_addr_http"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             string          `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	TokenStore            string          `json:"token_store"`
	RedisAddr             string          `json:"redis_addr"`
	PasswordHasher        string          `json:"password_hasher"`
	LegacyStatusCodes     *bool           `json:"legacy_status_codes"`
	PublicPaths           []string        `json:"public_paths"`
	LogLevel              string          `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. Keys missing
// from the file keep their current values. An unreadable file or invalid
// JSON panics, as a misconfigured service must not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.TokenStore != "" {
		config.TokenStore = c.TokenStore
	}
	if c.RedisAddr != "" {
		config.RedisAddr = c.RedisAddr
	}
	if c.PasswordHasher != "" {
		config.PasswordHasher = c.PasswordHasher
	}
	if c.LegacyStatusCodes != nil {
		config.LegacyStatusCodes = *c.LegacyStatusCodes
	}
	if c.PublicPaths != nil {
		config.PublicPaths = c.PublicPaths
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
