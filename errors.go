package narrative

import (
	"errors"
	"fmt"
)

// Sentinel errors for every failure an operation can report.
var (
	// Input validation
	ErrInvalidScore       = errors.New("narrative: invalid score, must be 0-100")
	ErrPlatformTooLong    = errors.New("narrative: platform name too long")
	ErrAlternativeTooLong = errors.New("narrative: alternative name too long")
	ErrInvalidDuration    = errors.New("narrative: subscription duration must be at least one day")
	ErrInvalidAmount      = errors.New("narrative: invalid amount, must be positive and within range")

	// Authorization
	ErrInvalidSigner = errors.New("narrative: missing or invalid signer")
	ErrUnauthorized  = errors.New("narrative: signer does not own this account")

	// Payment
	ErrInsufficientFunds = errors.New("narrative: insufficient funds")

	// Lookup
	ErrRecordNotFound       = errors.New("narrative: record not found")
	ErrSubscriptionNotFound = errors.New("narrative: subscription not found")
	ErrAlreadyExists        = errors.New("narrative: account already exists")

	// Subscription state
	ErrSubscriptionExpired  = errors.New("narrative: subscription expired")
	ErrSubscriptionCanceled = errors.New("narrative: subscription is canceled")

	// Store
	ErrStoreClosed       = errors.New("narrative: store is closed")
	ErrTransactionFailed = errors.New("narrative: transaction failed")
	ErrMigrationFailed   = errors.New("narrative: migration failed")
)

// ValidationError reports which input field failed validation. It unwraps to
// the matching sentinel so errors.Is keeps working.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("narrative: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel behind the validation failure.
func (e ValidationError) Unwrap() error { return e.Err }

// ErrorCode is the numeric kind of an error, numbered from 6000 in
// declaration order of the program's error enum.
type ErrorCode int

// Error codes.
const (
	CodeUnknown ErrorCode = iota + 5999
	CodeInvalidScore
	CodePlatformTooLong
	CodeAlternativeTooLong
	CodeSubscriptionExpired
	CodeUnauthorized
	CodeInsufficientFunds
	CodeInvalidDuration
	CodeInvalidSigner
	CodeInvalidAmount
	CodeRecordNotFound
	CodeSubscriptionNotFound
	CodeSubscriptionCanceled
)

var codeNames = map[ErrorCode]string{
	CodeUnknown:              "Unknown",
	CodeInvalidScore:         "InvalidScore",
	CodePlatformTooLong:      "PlatformTooLong",
	CodeAlternativeTooLong:   "AlternativeTooLong",
	CodeSubscriptionExpired:  "SubscriptionExpired",
	CodeUnauthorized:         "Unauthorized",
	CodeInsufficientFunds:    "InsufficientFunds",
	CodeInvalidDuration:      "InvalidDuration",
	CodeInvalidSigner:        "InvalidSigner",
	CodeInvalidAmount:        "InvalidAmount",
	CodeRecordNotFound:       "RecordNotFound",
	CodeSubscriptionNotFound: "SubscriptionNotFound",
	CodeSubscriptionCanceled: "SubscriptionCanceled",
}

var codeErrors = []struct {
	err  error
	code ErrorCode
}{
	{ErrInvalidScore, CodeInvalidScore},
	{ErrPlatformTooLong, CodePlatformTooLong},
	{ErrAlternativeTooLong, CodeAlternativeTooLong},
	{ErrSubscriptionExpired, CodeSubscriptionExpired},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrInvalidDuration, CodeInvalidDuration},
	{ErrInvalidSigner, CodeInvalidSigner},
	{ErrInvalidAmount, CodeInvalidAmount},
	{ErrRecordNotFound, CodeRecordNotFound},
	{ErrSubscriptionNotFound, CodeSubscriptionNotFound},
	{ErrSubscriptionCanceled, CodeSubscriptionCanceled},
}

// String returns the kind name, e.g. "InvalidScore".
func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return codeNames[CodeUnknown]
}

// Code classifies err. It returns CodeUnknown for nil or foreign errors.
func Code(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeUnknown
}

// IsNotFound returns true if the error is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound)
}

// IsValidationError returns true if the caller supplied bad input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrPlatformTooLong) ||
		errors.Is(err, ErrAlternativeTooLong) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsAuthorizationError returns true if the signer was missing or not the owner.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrInvalidSigner) ||
		errors.Is(err, ErrUnauthorized)
}

// IsPaymentError reports whether err came from the payment step.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAmount)
}
