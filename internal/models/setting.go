package models

import (
	"time"
)

// EmailAPIKey is the setting holding the email provider's API key
const EmailAPIKey = "email_api_key"

var settingDescriptions = map[string]string{
	EmailAPIKey: "API key for the transactional email provider",
}

// Setting is a single key/value configuration record; Key is unique
type Setting struct {
	ID          int64     `db:"id" json:"id"`
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description string    `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NewSetting builds a setting carrying the static description for key
func NewSetting(key, value string) *Setting {
	return &Setting{
		Key:         key,
		Value:       value,
		Description: DescriptionFor(key),
		UpdatedAt:   GetCurrentTime(),
	}
}

// DescriptionFor returns the static description for a known key, or ""
func DescriptionFor(key string) string {
	return settingDescriptions[key]
}
