package store

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
)

// Open connects to postgres. TranslateError is enabled so unique-constraint
// violations surface as gorm.ErrDuplicatedKey, which the enrollment path
// relies on to resolve insert races.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

// notFound maps the ORM's record-not-found error to the module's taxonomy.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}
