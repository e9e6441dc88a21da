package audithook

// Action constants for audit events.
const (
	// Record actions
	ActionRecordCreated = "record.created"

	// Subscription actions
	ActionSubscriptionCreated  = "subscription.created"
	ActionSubscriptionCanceled = "subscription.canceled"

	// Payment actions
	ActionPaymentTransferred = "payment.transferred"
	ActionPaymentFailed      = "payment.failed"
	ActionRefundIssued       = "refund.issued"
)

// Resource constants for audit events.
const (
	ResourceRecord       = "record"
	ResourceSubscription = "subscription"
	ResourceAccount      = "account"
)

// Category constants for audit events.
const (
	CategoryNarrative    = "narrative"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
