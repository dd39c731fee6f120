package logging

import (
	"time"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// #region clip-log-entry
// ClipLogEntry is a single row in the clip_log table.
type ClipLogEntry struct {
	RecordID         string
	ProfileVersionID string
	ProfileHash      string
	Proposed         safety.Action
	Context          safety.ContextState
	Result           safety.ClipResult
	CreatedAt        time.Time
}

// #endregion clip-log-entry
