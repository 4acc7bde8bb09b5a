package database

import (
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

var (
	ErrInvalidBatchSize = errors.New("invalid batch size")
	ErrInvalidData      = errors.New("invalid data, expected slice")
)

// CreateInBatches inserts the elements of the slice data in chunks of
// batchSize using tx. It does not open a transaction of its own.
func CreateInBatches(tx *gorm.DB, data interface{}, batchSize int) error {
	if batchSize <= 0 {
		return ErrInvalidBatchSize
	}

	slice := reflect.ValueOf(data)
	if slice.Kind() != reflect.Slice {
		return ErrInvalidData
	}

	total := slice.Len()
	for i := 0; i < total; i += batchSize {
		end := i + batchSize
		if end > total {
			end = total
		}

		chunk := slice.Slice(i, end).Interface()
		if err := tx.Create(chunk).Error; err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}
	return nil
}
