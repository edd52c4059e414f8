// Package logging wraps log/slog with per-module levels and an in-memory
// history for the HTTP log endpoints.
//
// Every record goes to up to three places: stdout (text or JSON) when it is
// attached to something, the systemd journal when journald is reachable,
// and a [RingBuffer] that backs GET /api/logs. A [LogCallback] set with
// [SetLogCallback] sees each entry as well; the daemon uses it to publish
// log events for the SSE stream.
//
// Call [Initialize] once at startup, then ask for module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"scheduler": "debug"},
//	})
//
//	logger := logging.GetLogger("scheduler").With("pattern_id", p.ID)
//	logger.Debug("Repetition finished", "count", n)
//
// Loggers fetched before Initialize are not stale: their level lives in a
// slog.LevelVar that Initialize and [SetModuleLevel] update in place.
//
// Journal entries are tagged with the identifier (default "ledsched") and
// carry attributes as upper-case fields:
//
//	journalctl -t ledsched MODULE=scheduler -f
//
// The matching TOML section:
//
//	[logging]
//	level = "info"
//	format = "json"
//	scheduler = "debug"
//	led = "warn"
package logging
