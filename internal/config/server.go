package config

import "time"

// ServerConfig holds HTTP server settings shared by the daemon manager.
type ServerConfig struct {
	ListenAddr        string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// ParseServerConfig reads server settings from the environment.
// The default listen address matches the deployed container contract.
func ParseServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:        ParseString("RENTD_LISTEN", "0.0.0.0:10000"),
		ReadTimeout:       ParseDuration("RENTD_READ_TIMEOUT", 30*time.Second),
		ReadHeaderTimeout: ParseDuration("RENTD_READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      ParseDuration("RENTD_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       ParseDuration("RENTD_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout:   ParseDuration("RENTD_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}
