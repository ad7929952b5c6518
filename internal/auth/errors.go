package auth

import "errors"

var (
	// ErrInvalidToken indicates an undecodable token or a signature mismatch.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token is past its expiry instant.
	ErrExpiredToken = errors.New("token expired")
	// ErrMalformedClaims indicates a verified token missing subject or roles.
	ErrMalformedClaims = errors.New("malformed claims")

	// ErrInvalidCredentials is returned for both an unknown handle and a
	// wrong password, so callers cannot enumerate handles.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized means no identity was installed where one is required.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the identity lacks a required role.
	ErrForbidden = errors.New("forbidden")
)
