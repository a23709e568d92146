package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/buretifund/bursary_backend/config"
	"gorm.io/gorm"
)

func ValidateUnique[T any](ctx context.Context, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records matching condition
func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).Where(condition, value...).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func FetchModel[T any](ctx context.Context, id interface{}) (*T, error) {
	db := config.GetDB()
	var model T
	err := db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &model, nil
}
