package model

import "time"

// StylePreset is a named, reusable style descriptor.
type StylePreset struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Settings    PresetStyle `json:"settings"`
	IsDefault   bool        `json:"is_default"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PresetStyle is the style portion of a preset, stored as JSON.
type PresetStyle struct {
	Foreground  string `json:"fgColor"`
	Background  string `json:"bgColor"`
	DotStyle    string `json:"dotStyle"`
	CornerStyle string `json:"cornerStyle"`
}

// UserSettings holds per-session generation defaults.
type UserSettings struct {
	SessionID     string    `json:"session_id"`
	DefaultSize   int       `json:"default_size"`
	DefaultFormat string    `json:"default_format"`
	DefaultECC    string    `json:"default_ecc"`
	DefaultFG     string    `json:"default_fg_color"`
	DefaultBG     string    `json:"default_bg_color"`
	Template      string    `json:"default_template"`
	UpdatedAt     time.Time `json:"updated_at"`
}
