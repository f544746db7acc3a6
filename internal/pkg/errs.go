package pkg

import "errors"

// Failure kinds. Handlers map these to HTTP statuses; callers use them to
// decide between fixing the request, refreshing state, or retrying.
type ErrKind int

const (
	KindValidation ErrKind = iota
	KindAuthorization
	KindNotFound
	KindTransient
)

var (
	// validation
	ErrSelfRelation     = errors.New("cannot follow yourself")
	ErrAlreadyRequested = errors.New("follow request already pending")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("they do not follow you yet")
	ErrNameTaken        = errors.New("display name already taken")
	ErrMalformedPayload = errors.New("message needs exactly one of text or image")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrCodeInvalid      = errors.New("verification code is wrong or expired")
	ErrWrongPassword    = errors.New("password is incorrect")
	ErrMissingField     = errors.New("missing required field")

	// authorization
	ErrNotAuthorized = errors.New("must follow each other to chat")

	// not-found
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("follow request not found")

	// transient
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrNameSpaceExhausted = errors.New("could not allocate a free display name")
)

// Kind classifies err into the failure taxonomy. Unknown errors are treated
// as transient: the store layer wraps everything it recognizes, so whatever
// is left is a driver or network failure the caller may retry.
func Kind(err error) ErrKind {
	switch {
	case errors.Is(err, ErrSelfRelation),
		errors.Is(err, ErrAlreadyRequested),
		errors.Is(err, ErrAlreadyFollowing),
		errors.Is(err, ErrNotFollowing),
		errors.Is(err, ErrNameTaken),
		errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrWrongPassword),
		errors.Is(err, ErrMissingField):
		return KindValidation
	case errors.Is(err, ErrNotAuthorized):
		return KindAuthorization
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrRequestNotFound):
		return KindNotFound
	default:
		return KindTransient
	}
}
