package store

import (
	"time"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
)

// #region profile-version
// ProfileVersion is a stored, immutable snapshot of a bounds profile.
type ProfileVersion struct {
	VersionID string
	ParentID  string
	Hash      string
	Profile   config.Profile
	CreatedAt time.Time
	Active    bool
}

// #endregion profile-version
