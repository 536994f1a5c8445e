// Package common defines shared constants and sentinel errors used across
// the Time Capsule client layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository/storage-tier errors.
	ErrNotFound        = errors.New("not found")
	ErrTierUnavailable = errors.New("storage tier unavailable")

	// Transport errors.
	ErrUnavailable = errors.New("server unavailable")

	// Identity errors.
	ErrIdentityUnavailable = errors.New("identity cannot be established")

	// Server-side flow control: the profile must be completed before the
	// conversation can proceed.
	ErrProfileRequired = errors.New("profile setup required")
)
