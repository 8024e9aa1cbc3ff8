package config

import (
	"os"
	"strings"
	"time"
)

var (
	listenAddr = ":4010"

	httpTimeout = 30 * time.Second

	// per-task cap on plugin setup/edit calls and descriptor fetches;
	// a hung plugin would otherwise stall the whole ranking batch
	enrichTimeout = 30 * time.Second

	// torrent descriptor inspection is off by default: pulling every
	// .torrent trips indexer rate limits fast
	inspectTorrents = false

	janitorInterval = 10 * time.Minute

	// logging
	logFilePath   = ""
	logAllowRegex = ""
	logDenyRegex  = ``
	logDedupWin   = 3 * time.Second
)

func Load() {
	listenAddr = getenv("LISTEN", listenAddr)

	httpTimeout = getenvDuration("HTTP_TIMEOUT", httpTimeout)
	enrichTimeout = getenvDuration("ENRICH_TIMEOUT", enrichTimeout)

	inspectTorrents = strings.ToLower(getenv("INSPECT_TORRENTS", "false")) == "true"

	janitorInterval = getenvDuration("JANITOR_INTERVAL", janitorInterval)

	logFilePath = getenv("LOG_FILE", logFilePath)
	logAllowRegex = getenv("LOG_ALLOW", logAllowRegex)
	logDenyRegex = getenv("LOG_DENY", logDenyRegex)
	logDedupWin = getenvDuration("LOG_DEDUP_WINDOW", logDedupWin)
}

// getters
func ListenAddr() string             { return listenAddr }
func HTTPTimeout() time.Duration     { return httpTimeout }
func EnrichTimeout() time.Duration   { return enrichTimeout }
func InspectTorrents() bool          { return inspectTorrents }
func JanitorInterval() time.Duration { return janitorInterval }
func LogFilePath() string            { return logFilePath }
func LogAllowRegex() string          { return logAllowRegex }
func LogDenyRegex() string           { return logDenyRegex }
func LogDedupWindow() time.Duration  { return logDedupWin }

// helpers
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
