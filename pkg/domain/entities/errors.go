package entities

// DomainError represents a recoverable business failure scoped to one operation
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Business errors surfaced by the market core
var (
	ErrNotFound                   = NewDomainError("NOT_FOUND", "resource not found")
	ErrInvalidInput               = NewDomainError("INVALID_INPUT", "invalid input provided")
	ErrInsufficientStock          = NewDomainError("INSUFFICIENT_STOCK", "insufficient stock available")
	ErrAllocationUnsatisfiable    = NewDomainError("ALLOCATION_UNSATISFIABLE", "demand cannot be met by any stand or supplier")
	ErrInsufficientFunds          = NewDomainError("INSUFFICIENT_FUNDS", "buyer cannot cover the cost")
	ErrEntityClosed               = NewDomainError("ENTITY_CLOSED", "entity is not accepting transactions")
	ErrSupplierNotFound           = NewDomainError("SUPPLIER_NOT_FOUND", "referenced supplier does not exist")
	ErrIdentityVerificationFailed = NewDomainError("IDENTITY_VERIFICATION_FAILED", "identity verification failed")
)
