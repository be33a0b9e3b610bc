package types

// Theme is the UI color scheme preference
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto" // follows the operating system
)

// Valid reports whether t is one of the known themes
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// AppSettings holds user preferences. Every field is optional: a nil pointer
// or empty string means the preference was never set, and an empty
// AppSettings is a valid value. Because of this an empty string is never
// stored: it is omitted from JSON and persisted as NULL.
type AppSettings struct {
	Theme           Theme  `json:"theme,omitempty"`
	Notifications   *bool  `json:"notifications,omitempty"`
	AutoRefresh     *bool  `json:"autoRefresh,omitempty"`
	RefreshInterval *int   `json:"refreshInterval,omitempty"` // seconds
	Language        string `json:"language,omitempty"`
	Timezone        string `json:"timezone,omitempty"` // IANA name
}

// Clone returns a deep copy. Clone of nil is nil.
func (s *AppSettings) Clone() *AppSettings {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Notifications = clonePtr(s.Notifications)
	cp.AutoRefresh = clonePtr(s.AutoRefresh)
	cp.RefreshInterval = clonePtr(s.RefreshInterval)
	return &cp
}

// Merge returns a copy of s with every field present in patch overriding
// the corresponding field of s. Either side may be nil. An empty string in
// patch counts as absent and keeps the current value; a preference is
// cleared by replacing the whole value instead.
func (s *AppSettings) Merge(patch *AppSettings) *AppSettings {
	out := s.Clone()
	if out == nil {
		out = &AppSettings{}
	}
	if patch == nil {
		return out
	}

	if patch.Theme != "" {
		out.Theme = patch.Theme
	}
	if patch.Notifications != nil {
		out.Notifications = clonePtr(patch.Notifications)
	}
	if patch.AutoRefresh != nil {
		out.AutoRefresh = clonePtr(patch.AutoRefresh)
	}
	if patch.RefreshInterval != nil {
		out.RefreshInterval = clonePtr(patch.RefreshInterval)
	}
	if patch.Language != "" {
		out.Language = patch.Language
	}
	if patch.Timezone != "" {
		out.Timezone = patch.Timezone
	}
	return out
}

// NotificationsEnabled reports whether notifications are explicitly on
func (s *AppSettings) NotificationsEnabled() bool {
	return s != nil && s.Notifications != nil && *s.Notifications
}

// AutoRefreshEnabled reports whether auto refresh is explicitly on
func (s *AppSettings) AutoRefreshEnabled() bool {
	return s != nil && s.AutoRefresh != nil && *s.AutoRefresh
}

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
