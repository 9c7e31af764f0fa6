package models

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/returns_backend/utils"
	"gorm.io/gorm"
)

var (
	ErrUnknownStore        = errors.New("unknown store")
	ErrUnknownProduct      = errors.New("unknown product")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrUniquenessViolation = errors.New("report uniqueness violated")
	ErrStorageUnavailable  = errors.New("storage unavailable")

	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidCategory    = errors.New("invalid defect category")
	ErrDuplicateLineItem  = errors.New("duplicate product in submission")
	ErrPeriodClosed       = errors.New("period is closed")
	ErrInvalidCredentials = errors.New("invalid login id or password")
	ErrInvalidInput       = errors.New("invalid input")

	ErrRecordNotFound = utils.ErrorRecordNotFound
)

func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// storageErr classifies a database error; domain errors pass through untouched.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case isDuplicateKeyErr(err):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	case isDomainErr(err):
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		ErrUnknownStore, ErrUnknownProduct, ErrInvalidPeriod, ErrDuplicateKey,
		ErrUniquenessViolation, ErrStorageUnavailable, ErrInvalidQuantity,
		ErrInvalidCategory, ErrDuplicateLineItem, ErrPeriodClosed,
		ErrInvalidCredentials, ErrInvalidInput, ErrRecordNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
