package cart

import "errors"

// Kind classifies why an operation did not succeed. The split matters to
// clients: caller errors, missing entities, declined business rules and
// soft no-ops all render differently.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindOperation
	KindNoOp
	KindNoCart
	KindNotImplemented
)

// DefaultCode is the HTTP-analog code used when the operation does not
// override it. A no-op is reported as an error for the client but keeps
// the 200 code; nothing actually failed.
func (k Kind) DefaultCode() int {
	switch k {
	case KindValidation, KindOperation:
		return 400
	case KindNotFound, KindNoCart:
		return 404
	case KindNoOp:
		return 200
	case KindNotImplemented:
		return 501
	default:
		return 500
	}
}

// Failure is the returned (never panicked) operation error. Callers that
// build envelopes cannot forget a failure path: every façade operation
// either succeeds or hands one of these to the envelope builder.
type Failure struct {
	Kind    Kind
	Code    int
	Message string
}

func (f *Failure) Error() string { return f.Message }

func newFailure(kind Kind, code int, message string) *Failure {
	if code == 0 {
		code = kind.DefaultCode()
	}
	return &Failure{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *Failure     { return newFailure(KindValidation, 0, message) }
func NotFound(message string) *Failure       { return newFailure(KindNotFound, 0, message) }
func Operation(message string) *Failure      { return newFailure(KindOperation, 0, message) }
func NoOp(message string) *Failure           { return newFailure(KindNoOp, 0, message) }
func NoCart(message string) *Failure         { return newFailure(KindNoCart, 0, message) }
func NotImplemented(message string) *Failure { return newFailure(KindNotImplemented, 0, message) }

// OperationWithCode is for domain failures whose cause dictates a
// non-default code, e.g. downstream/payment failures reported as 500.
func OperationWithCode(code int, message string) *Failure {
	return newFailure(KindOperation, code, message)
}

// AsFailure unwraps err into a *Failure if one is in the chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
