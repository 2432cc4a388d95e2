package repository

import (
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"gorm.io/gorm"
)

// wrapErr maps gorm errors onto domain errors.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return domain.NewPersistenceError(op, err)
}
