package config

import (
	"os"
	"time"
)

// RateLimitConfig drives the Redis token-bucket limiter. Two named profiles
// are loaded: "OTP" guards /auth/request-otp (5 requests per 10 minutes)
// and "VERIFY" guards the GST/PAN provider proxy (30 requests per minute).
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the profile's environment overrides. The prefix
// argument names the profile, e.g. "OTP" reads OTP_RATE_LIMIT_CAPACITY.
func LoadRateLimitConfig(profile string, capacity int, refillEvery time.Duration) RateLimitConfig {
	env := func(k string) string { return profile + "_RATE_LIMIT_" + k }
	def := RateLimitConfig{
		Enabled:        envBool(env("ENABLED"), true),
		Capacity:       envInt(env("CAPACITY"), capacity),
		RefillTokens:   1,
		RefillInterval: envDur(env("REFILL_EVERY"), refillEvery),
		TTL:            envDur(env("TTL"), 10*time.Minute),
		KeyStrategy:    envStr(env("KEY_STRATEGY"), "ip_route"),
		Prefix:         envStr(env("PREFIX"), "rl:"+profile),
		Debug:          envBool(env("DEBUG"), false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
