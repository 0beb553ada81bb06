package domain

import "context"

// Preferences holds a user's notification settings. Kinds absent from
// DisabledKinds are delivered; an unknown user gets the zero value (everything
// enabled).
type Preferences struct {
	UserID        string
	DisabledKinds map[Kind]bool
}

// Wants reports whether the user accepts messages of the given kind.
func (p Preferences) Wants(kind Kind) bool {
	return !p.DisabledKinds[kind]
}

// PreferenceRepository supplies notification preferences from the relational
// store. Implemented by internal/database.
type PreferenceRepository interface {
	GetPreferences(ctx context.Context, userID string) (Preferences, error)
}
