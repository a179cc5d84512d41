package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyWorldID    = "world_id"
	KeyWorldName  = "world_name"
	KeyPlayerID   = "player_id"
	KeyPortalID   = "portal_id"
	KeyKind       = "kind"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyFile       = "file"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func WorldID(id string) slog.Attr      { return slog.String(KeyWorldID, id) }
func WorldName(n string) slog.Attr     { return slog.String(KeyWorldName, n) }
func PlayerID(id string) slog.Attr     { return slog.String(KeyPlayerID, id) }
func PortalID(id string) slog.Attr     { return slog.String(KeyPortalID, id) }
func Kind(k string) slog.Attr          { return slog.String(KeyKind, k) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func File(path string) slog.Attr       { return slog.String(KeyFile, path) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
