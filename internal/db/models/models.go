// Package models defines the database models for the blogpilot service
package models

import "gorm.io/gorm"

// MigrateAll runs the schema migrations for every model in dependency order
func MigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&Job{},
		&Post{},
	)
}

// ListOptions represents common options for listing resources
type ListOptions struct {
	Limit    int
	Offset   int
	JobState *JobState
}
