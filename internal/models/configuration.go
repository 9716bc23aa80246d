package models

import "time"

// ConfigurationType tags the kind of a stored setting so values are
// validated at the read boundary instead of flowing through untyped.
type ConfigurationType string

const (
	ConfigurationTypeBoolean ConfigurationType = "boolean"
	ConfigurationTypeID      ConfigurationType = "id"
)

// Configuration is a single key/value settings row.
type Configuration struct {
	Key       string            `db:"key" json:"key"`
	Value     string            `db:"value" json:"value"`
	Type      ConfigurationType `db:"type" json:"type"`
	UpdatedBy *string           `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}
