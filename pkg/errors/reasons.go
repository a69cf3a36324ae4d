package errors

// Reason names the business rule behind a typed error.
type Reason string

const (
	ReasonInvalidAmount   Reason = "INVALID_AMOUNT"
	ReasonInvalidBalance  Reason = "INVALID_BALANCE"
	ReasonInvalidQuantity Reason = "INVALID_QUANTITY"

	ReasonNoOpenRegister        Reason = "NO_OPEN_REGISTER"
	ReasonRegisterAlreadyOpen   Reason = "REGISTER_ALREADY_OPEN"
	ReasonCustomerRequired      Reason = "CUSTOMER_REQUIRED"
	ReasonOrderClosed           Reason = "ORDER_CLOSED"
	ReasonAlreadyCompleted      Reason = "ALREADY_COMPLETED"
	ReasonCannotDeleteCompleted Reason = "CANNOT_DELETE_COMPLETED"
	ReasonInvalidTransition     Reason = "INVALID_TRANSITION"

	ReasonInsufficientStock   Reason = "INSUFFICIENT_STOCK"
	ReasonInsufficientBalance Reason = "INSUFFICIENT_BALANCE"
	ReasonExceedsPayable      Reason = "EXCEEDS_PAYABLE"

	ReasonConcurrentModification Reason = "CONCURRENT_MODIFICATION"
)

// Precondition builds a PRECONDITION_FAILED error tagged with reason.
func Precondition(reason Reason, message string) *Error {
	return New(CodePrecondition, message).WithReason(reason)
}

// Insufficient builds an INSUFFICIENT_RESOURCE error tagged with reason.
func Insufficient(reason Reason, message string) *Error {
	return New(CodeInsufficient, message).WithReason(reason)
}

// Invalid builds a VALIDATION_ERROR tagged with reason.
func Invalid(reason Reason, message string) *Error {
	return New(CodeValidation, message).WithReason(reason)
}
