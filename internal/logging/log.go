// Package logging has two halves: line logging for the long-running pieces
// (guard, reload, serve, service) and the clip_log table writer in cliplog.go.
package logging

import (
	"fmt"
	"log"
	"strings"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// #region line-log
// Info writes "[COMPONENT] msg k=v ..." to the standard logger.
func Info(component, msg string, kv ...interface{}) {
	emit(component, "", msg, kv)
}

// Warn is Info with a WARN tag; used for limit misconfiguration and dropped reloads.
func Warn(component, msg string, kv ...interface{}) {
	emit(component, "WARN ", msg, kv)
}

// Error is Info with an ERROR tag.
func Error(component, msg string, kv ...interface{}) {
	emit(component, "ERROR ", msg, kv)
}

func emit(component, level, msg string, kv []interface{}) {
	log.Printf("[%s] %s%s%s", strings.ToUpper(component), level, msg, formatFields(kv))
}

// #endregion line-log

// A trailing key without a value is logged as key=(missing).
func formatFields(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		b.WriteString(strings.TrimSpace(fieldValue(kv[i])))
		b.WriteByte('=')
		if i+1 < len(kv) {
			b.WriteString(fieldValue(kv[i+1]))
		} else {
			b.WriteString("(missing)")
		}
	}
	return b.String()
}

// Limits and actions print the same way the CLI shows them, so an unbounded
// side reads +Inf rather than a bare float dump.
func fieldValue(v interface{}) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case error:
		s = t.Error()
	case float64:
		s = safety.FormatValue(t)
	case safety.Action:
		s = safety.FormatAction(t)
	case []float64:
		s = safety.FormatAction(t)
	default:
		s = fmt.Sprintf("%v", t)
	}
	return strings.ReplaceAll(s, "\n", " ")
}
