package models

import "gorm.io/gorm"

// Migrate keeps the schema in step with the models. Safe to run on
// every boot; GORM only applies what changed.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Student{},
	)
}
