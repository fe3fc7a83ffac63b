package setting

import "time"

// Well-known settings keys seeded by setup.
const (
	KeySystemName        = "system_name"
	KeyDefaultLanguage   = "default_language"
	KeyTimezone          = "timezone"
	KeyMaintenanceNotice = "maintenance_notice"
	KeyAllowedFileTypes  = "allowed_file_types"
)

type Setting struct {
	ID          int64     `json:"id" db:"id"`
	Key         string    `json:"key" db:"setting_key"`
	Value       string    `json:"value" db:"setting_value"`
	Description string    `json:"description" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type UpdateRequest struct {
	Value string `json:"value"`
}
