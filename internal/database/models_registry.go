package database

import "moments/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Moment{},
		&models.RSVP{},
		&models.Follow{},
	}
}
