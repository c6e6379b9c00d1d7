package auth

import "errors"

var (
	// ErrMissingCredential means no usable bearer token was presented.
	ErrMissingCredential = errors.New("auth: missing credential")
	// ErrInvalidToken covers bad signatures, unexpected algorithms and malformed claims.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpired means the token was well formed and signed but is past its expiry.
	ErrExpired = errors.New("auth: token expired")
	// ErrUnknownIdentity means the token subject no longer resolves to a user.
	ErrUnknownIdentity = errors.New("auth: unknown identity")
	// ErrForbidden means the caller is authenticated but lacks a required role.
	ErrForbidden = errors.New("auth: forbidden")
)
