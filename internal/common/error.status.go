package common

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// HTTP Status Code Constants
const (
	// Success Codes (2xx)
	StatusOK        = 200
	StatusCreated   = 201
	StatusNoContent = 204

	// Client Error Codes (4xx)
	StatusBadRequest      = 400
	StatusUnauthorized    = 401
	StatusForbidden       = 403
	StatusNotFound        = 404
	StatusConflict        = 409
	StatusTooManyRequests = 429

	// Server Error Codes (5xx)
	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

// Response Messages
const (
	MsgSuccess = "Success"
	MsgCreated = "Created"

	MsgBadRequest         = "Invalid request"
	MsgUnauthorized       = "Access key required"
	MsgNotFound           = "Resource not found"
	MsgConflict           = "Conflicting data"
	MsgTooManyRequests    = "Too many requests, please retry later"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service unavailable"

	MsgValidationError = "Invalid data"
	MsgDatabaseError   = "Database error"
	MsgInvalidFormat   = "Invalid data format"
)

// ErrorCode is a hierarchical error code carried in every error response.
type ErrorCode struct {
	Code        string // e.g. VAL_001
	Category    string // e.g. Validation
	SubCategory string // e.g. Period
	Description string
}

var (
	// System Errors (SYS_xxx)
	ErrCodeInternalServer = ErrorCode{
		Code:        "SYS_001",
		Category:    "System",
		SubCategory: "Internal",
		Description: "Internal system error",
	}

	// Authentication Errors (AUTH_xxx)
	ErrCodeAuth = ErrorCode{
		Code:        "AUTH",
		Category:    "Authentication",
		SubCategory: "General",
		Description: "Shared access key missing or wrong",
	}

	// Validation Errors (VAL_xxx)
	ErrCodeValidation = ErrorCode{
		Code:        "VAL",
		Category:    "Validation",
		SubCategory: "General",
		Description: "General validation error",
	}

	ErrCodeValidationInput = ErrorCode{
		Code:        "VAL_001",
		Category:    "Validation",
		SubCategory: "Input",
		Description: "Invalid input data",
	}

	ErrCodeValidationFormat = ErrorCode{
		Code:        "VAL_002",
		Category:    "Validation",
		SubCategory: "Format",
		Description: "Invalid data format",
	}

	ErrCodeValidationPeriod = ErrorCode{
		Code:        "VAL_003",
		Category:    "Validation",
		SubCategory: "Period",
		Description: "Month or year cannot be interpreted",
	}

	// Database Errors (DB_xxx)
	ErrCodeDatabase = ErrorCode{
		Code:        "DB",
		Category:    "Database",
		SubCategory: "General",
		Description: "General database error",
	}

	ErrCodeDatabaseConnection = ErrorCode{
		Code:        "DB_001",
		Category:    "Database",
		SubCategory: "Connection",
		Description: "Report store unreachable",
	}

	ErrCodeDatabaseQuery = ErrorCode{
		Code:        "DB_002",
		Category:    "Database",
		SubCategory: "Query",
		Description: "Query error",
	}

	ErrCodeDatabaseDuplicate = ErrorCode{
		Code:        "DB_003",
		Category:    "Database",
		SubCategory: "Duplicate",
		Description: "A report already exists for this slot",
	}

	// Business Logic Errors (BIZ_xxx)
	ErrCodeBusinessState = ErrorCode{
		Code:        "BIZ_001",
		Category:    "Business",
		SubCategory: "State",
		Description: "Invalid business state",
	}

	ErrCodeBusinessOperation = ErrorCode{
		Code:        "BIZ_002",
		Category:    "Business",
		SubCategory: "Operation",
		Description: "Operation not allowed",
	}
)

// Error is the structured error returned by services and rendered by handlers.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    any
}

// Error returns the message of the error.
func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error with the same code and message, so a sentinel
// survives being re-created with different Details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code.Code == t.Code.Code && e.Message == t.Message
}

// NewError creates a new error with full information.
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// WithDetails returns a copy of a sentinel *Error carrying details. Non *Error
// values are returned unchanged.
func WithDetails(err error, details any) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Details = details
	return &cp
}

// Custom errors
var (
	// Authentication Errors
	ErrAccessKeyMissing = NewError(ErrCodeAuth, "Missing access key", StatusUnauthorized, nil)
	ErrAccessKeyInvalid = NewError(ErrCodeAuth, "Invalid access key", StatusUnauthorized, nil)

	// Validation Errors
	ErrInvalidInput  = NewError(ErrCodeValidationInput, "Invalid input data", StatusBadRequest, nil)
	ErrInvalidFormat = NewError(ErrCodeValidationFormat, "Invalid data format", StatusBadRequest, nil)
	ErrRequiredField = NewError(ErrCodeValidationInput, "Missing required field", StatusBadRequest, nil)
	ErrInvalidPeriod = NewError(ErrCodeValidationPeriod, "Invalid reporting period", StatusBadRequest, nil)

	// Database Errors
	ErrNotFound         = NewError(ErrCodeDatabaseQuery, "Data not found", StatusNotFound, nil)
	ErrDuplicateReport  = NewError(ErrCodeDatabaseDuplicate, "A report for this institution and month already exists", StatusConflict, nil)
	ErrStoreUnavailable = NewError(ErrCodeDatabaseConnection, "Report store unavailable", StatusServiceUnavailable, nil)

	// Business Logic Errors
	ErrReportLocked     = NewError(ErrCodeBusinessState, "Report is locked, unlock it before editing", StatusConflict, nil)
	ErrInvalidOperation = NewError(ErrCodeBusinessOperation, "Operation not allowed", StatusBadRequest, nil)
)

// MongoDB Error Messages
const (
	MsgMongoQuery = "MongoDB query error"
	MsgMongoWrite = "MongoDB write error"
)

// MongoDB Specific Errors
var (
	ErrMongoQuery = NewError(ErrCodeDatabaseQuery, MsgMongoQuery, StatusInternalServerError, nil)
	ErrMongoWrite = NewError(ErrCodeDatabaseQuery, MsgMongoWrite, StatusInternalServerError, nil)
)

// ConvertMongoError maps driver errors onto the error taxonomy. Duplicate keys
// become ErrDuplicateReport; anything that means the store could not be reached
// becomes ErrStoreUnavailable so the fallback tiers can take over.
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}

	var own *Error
	if errors.As(err, &own) {
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateReport
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return WithDetails(ErrStoreUnavailable, err.Error())
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded) {
		return WithDetails(ErrStoreUnavailable, err.Error())
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch {
		case cmdErr.Code >= 400 && cmdErr.Code < 500:
			return WithDetails(ErrMongoWrite, err.Error())
		default:
			return WithDetails(ErrMongoQuery, err.Error())
		}
	}

	return NewError(ErrCodeDatabase, MsgDatabaseError, StatusInternalServerError, err.Error())
}
