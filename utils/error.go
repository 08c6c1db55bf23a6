package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError marks input that violates a contract (non-positive amount,
// empty category, far-future date). Raised before any persistence and mapped to
// a 400 at the HTTP boundary; never silently coerced.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDuplicateKey reports a MySQL unique-index violation (error 1062).
func IsDuplicateKey(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
