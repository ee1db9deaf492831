package core

import "errors"

// Kind classifies an error for the transport layer
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindUnauthorized
	KindDecryption
	KindUnsupportedAction
	KindSubmission
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindUnauthorized:
		return "unauthorized"
	case KindDecryption:
		return "decryption"
	case KindUnsupportedAction:
		return "unsupported_action"
	case KindSubmission:
		return "submission"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified sentinel. Compare with errors.Is, classify with KindOf.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrInvalidAddress = &Error{KindValidation, "invalid address"}
	ErrInvalidRequest = &Error{KindValidation, "invalid request"}
	ErrInvalidAmount  = &Error{KindValidation, "amount must be a positive integer in base units"}
	ErrInvalidKey     = &Error{KindValidation, "invalid private key"}
	ErrUnknownChain   = &Error{KindValidation, "unknown signature scheme"}
	ErrKeyNotFound    = &Error{KindNotFound, "no agent key registered for wallet"}
	ErrTxNotFound     = &Error{KindNotFound, "transaction not found"}

	ErrNonceNotFound    = &Error{KindAuth, "nonce not found"}
	ErrNonceExpired     = &Error{KindAuth, "nonce expired"}
	ErrReplayDetected   = &Error{KindAuth, "replay detected"}
	ErrNonceMismatch    = &Error{KindAuth, "nonce mismatch"}
	ErrInvalidSignature = &Error{KindAuth, "signature invalid"}

	ErrUnauthorized     = &Error{KindUnauthorized, "unauthorized"}
	ErrTokenExpired     = &Error{KindUnauthorized, "token has expired"}
	ErrInvalidToken     = &Error{KindUnauthorized, "invalid token"}
	ErrTokenInvalidated = &Error{KindUnauthorized, "token has been invalidated"}

	ErrDecryption = &Error{KindDecryption, "failed to decrypt key material"}

	ErrUnsupportedAction = &Error{KindUnsupportedAction, "unsupported protocol action"}

	ErrSubmission     = &Error{KindSubmission, "transaction submission failed"}
	ErrMalformedTx    = &Error{KindValidation, "malformed transaction payload"}
	ErrSignerMismatch = &Error{KindValidation, "signer does not match payload sender"}

	ErrStore = &Error{KindInternal, "store operation failed"}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Reason returns the message of the first *Error in err's chain, suitable for
// returning to a client. Unclassified errors yield a generic message.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
