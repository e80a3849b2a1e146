// Package logfields holds canonical slog attribute keys so log output stays
// consistent across packages.
package logfields

import "log/slog"

const (
	KeyRules      = "rules"
	KeyLog        = "log"
	KeyOutput     = "output"
	KeyLine       = "line"
	KeyCategory   = "category"
	KeySection    = "section"
	KeyErrors     = "errors"
	KeyWarnings   = "warnings"
	KeyInfos      = "infos"
	KeyStatus     = "status"
	KeyWebhook    = "webhook"
	KeyDurationMS = "duration_ms"
	KeyRunID      = "run_id"
	KeyError      = "error"
)

func Rules(name string) slog.Attr     { return slog.String(KeyRules, name) }
func Log(name string) slog.Attr       { return slog.String(KeyLog, name) }
func Output(loc string) slog.Attr     { return slog.String(KeyOutput, loc) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Section(header string) slog.Attr { return slog.String(KeySection, header) }
func Errors(n int) slog.Attr          { return slog.Int(KeyErrors, n) }
func Warnings(n int) slog.Attr        { return slog.Int(KeyWarnings, n) }
func Infos(n int) slog.Attr           { return slog.Int(KeyInfos, n) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func Webhook(name string) slog.Attr   { return slog.String(KeyWebhook, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
