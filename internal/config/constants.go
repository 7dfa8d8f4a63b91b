package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background instrument refresh check interval
const RefreshJobInterval = 15 * time.Minute

// Per-account login lock TTL; covers the worst-case login + 2FA +
// handshake round trips.
const LoginLockTTL = 90 * time.Second

// Daily instrument data cutoff, exchange-local wall clock. The broker
// publishes its dump by 08:15; 08:30 leaves a safety margin.
const (
	InstrumentCutoffHour   = 8
	InstrumentCutoffMinute = 30
)
