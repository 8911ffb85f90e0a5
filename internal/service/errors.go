package service

import (
	"context"
	"errors"
	"fmt"

	drivermysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 错误类别：具体错误通过 %w 归属到某一类别，HTTP 层只按类别映射状态码
var (
	ErrValidation        = errors.New("validation failed")
	ErrAuthentication    = errors.New("authentication required")
	ErrAuthorization     = errors.New("permission denied")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrBookingConflict   = fmt.Errorf("%w: reservation overlaps a confirmed booking", ErrConflict)
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTimeout           = errors.New("operation timed out")
	ErrInternal          = errors.New("internal error")
)

// 具体业务错误
var (
	ErrSlugExists            = fmt.Errorf("%w: slug already exists", ErrConflict)
	ErrSlugInvalid           = fmt.Errorf("%w: slug must be lowercase letters, digits and dashes", ErrValidation)
	ErrCategoryNameRequired  = fmt.Errorf("%w: category name is required", ErrValidation)
	ErrCategoryNotFound      = fmt.Errorf("%w: category", ErrNotFound)
	ErrProductNotFound       = fmt.Errorf("%w: product", ErrNotFound)
	ErrProductNameRequired   = fmt.Errorf("%w: product name is required", ErrValidation)
	ErrProductPriceInvalid   = fmt.Errorf("%w: price must be greater than 0", ErrValidation)
	ErrProductStockInvalid   = fmt.Errorf("%w: stock must not be negative", ErrValidation)
	ErrProductCategoryAbsent = fmt.Errorf("%w: referenced category does not exist", ErrValidation)
	ErrSpecificationInvalid  = fmt.Errorf("%w: specifications", ErrValidation)
	ErrRuleViolation         = fmt.Errorf("%w: rule", ErrValidation)

	ErrRoomTypeNotFound     = fmt.Errorf("%w: room type", ErrNotFound)
	ErrRoomTypeInvalid      = fmt.Errorf("%w: room type", ErrValidation)
	ErrRoomTypeInUse        = fmt.Errorf("%w: room type is referenced by rooms", ErrConflict)
	ErrRoomNotFound         = fmt.Errorf("%w: room", ErrNotFound)
	ErrRoomInvalid          = fmt.Errorf("%w: room", ErrValidation)
	ErrRoomNumberExists     = fmt.Errorf("%w: room number already exists", ErrConflict)
	ErrRoomUnavailable      = fmt.Errorf("%w: room is not bookable", ErrValidation)
	ErrReservationNotFound  = fmt.Errorf("%w: reservation", ErrNotFound)
	ErrReservationRange     = fmt.Errorf("%w: start date must be before end date", ErrValidation)
	ErrReservationTooLong   = fmt.Errorf("%w: stay exceeds maximum nights", ErrValidation)
	ErrReservationGuests    = fmt.Errorf("%w: guests exceed room capacity", ErrValidation)
	ErrReservationContact   = fmt.Errorf("%w: contact details", ErrValidation)
	ErrReservationStatusBad = fmt.Errorf("%w: unknown reservation status", ErrValidation)

	ErrStatDateInvalid   = fmt.Errorf("%w: date", ErrValidation)
	ErrStatCountsInvalid = fmt.Errorf("%w: counters must not be negative", ErrValidation)
	ErrPageViewInvalid   = fmt.Errorf("%w: page url is required", ErrValidation)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	ErrTokenMissing       = fmt.Errorf("%w: bearer token missing", ErrAuthentication)
	ErrTokenInvalid       = fmt.Errorf("%w: token invalid", ErrAuthentication)
	ErrAdminExists        = fmt.Errorf("%w: admin username already exists", ErrConflict)
	ErrAdminInvalid       = fmt.Errorf("%w: admin", ErrValidation)

	ErrCaptchaRequired = fmt.Errorf("%w: captcha required", ErrValidation)
	ErrCaptchaInvalid  = fmt.Errorf("%w: captcha invalid", ErrValidation)

	ErrUploadInvalid = fmt.Errorf("%w: upload", ErrValidation)
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgExclusionViolation  = "23P01"
	pgQueryCanceled       = "57014"
	mysqlDuplicateEntry   = 1062
)

// ClassifyDBError 将驱动层错误归类；已归类或无法识别的错误原样返回
func ClassifyDBError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return fmt.Errorf("%w: %v", ErrBookingConflict, err)
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case pgCheckViolation:
			return fmt.Errorf("%w: %v", ErrValidation, err)
		case pgQueryCanceled:
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}
	var myErr *drivermysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// ErrorKind 返回错误所属类别，未归类错误视为内部错误
func ErrorKind(err error) error {
	for _, kind := range []error{
		ErrBookingConflict,
		ErrInvalidTransition,
		ErrValidation,
		ErrAuthentication,
		ErrAuthorization,
		ErrNotFound,
		ErrConflict,
		ErrTimeout,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}
