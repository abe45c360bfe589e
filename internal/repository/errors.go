package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// handleError converts database-specific errors to domain errors.
func handleError(err error) error {
	errStr := err.Error()

	isUnique := strings.Contains(errStr, "duplicate key") || // PostgreSQL
		strings.Contains(errStr, "UNIQUE constraint") || // SQLite
		strings.Contains(errStr, "Duplicate entry") || // MySQL
		errors.Is(err, gorm.ErrDuplicatedKey)

	if isUnique {
		if strings.Contains(errStr, "email") {
			return ErrEmailExists
		}
		if strings.Contains(errStr, "username") {
			return ErrUsernameExists
		}
	}
	return err
}

func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
