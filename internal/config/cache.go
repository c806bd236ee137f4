package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the Redis response cache placed in
// front of the payment reporting endpoints. Caching is off when Enabled is
// false or no Redis client is available.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // route, method_route, route_query, method_route_query
	Prefix       string
	MaxBodyBytes int
	// SkipRoutes lists route patterns that are never cached.
	SkipRoutes map[string]bool
}

// DefaultCacheSkipRoutes are the dues endpoints read straight from the
// ledger on every request.
const DefaultCacheSkipRoutes = "/payment/pending/user/:userEmail/mess/:messId,/payment/total-pending/mess/:messId"

// LoadCacheConfig reads CACHE_* variables. Methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "mymess:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		SkipRoutes:   parseRoutes(envStr("CACHE_SKIP_ROUTES", DefaultCacheSkipRoutes)),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

func parseRoutes(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			m[p] = true
		}
	}
	return m
}
