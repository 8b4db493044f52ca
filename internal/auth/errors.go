package auth

import "errors"

// Rejection outcomes. Each one is mapped to exactly one HTTP status at the
// boundary; ErrMalformedToken and ErrTokenExpired must stay distinct.
var (
	ErrMissingCredential        = errors.New("missing credential")
	ErrMalformedToken           = errors.New("malformed token or bad signature")
	ErrTokenExpired             = errors.New("token expired")
	ErrUnknownSubject           = errors.New("unknown token subject")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrDuplicateEmail           = errors.New("email already registered")
	ErrIncorrectCurrentPassword = errors.New("incorrect current password")
	ErrVerificationRequired     = errors.New("account verification required")
	ErrKYCRequired              = errors.New("kyc approval required")
	ErrTOSRequired              = errors.New("terms of service acceptance required")
	ErrProviderLinkRequired     = errors.New("provider customer link required")
	ErrSessionInvalid           = errors.New("session invalid")

	ErrInvalidResetCode        = errors.New("invalid or expired reset code")
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
	ErrInvalidStatus           = errors.New("unknown account status value")
	ErrInvalidTransition       = errors.New("status transition not allowed")
	ErrWeakPassword            = errors.New("password must be at least 8 characters")
	ErrInvalidInput            = errors.New("invalid input")
)
