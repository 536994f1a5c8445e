// Package models defines client-side data models used by the Time Capsule CLI.
package models

// DeviceIdentity is the durable, opaque identifier standing in for a user
// account. It is established without credentials, generated server-side when
// possible, and immutable once created; only an explicit device reset ever
// replaces it.
type DeviceIdentity struct {
	// Id is a globally unique identifier for the device.
	Id string `json:"id"`

	// CreatedLocally marks identities synthesized on the client because the
	// server could not be reached. Functionally equivalent to a server-issued
	// id; kept for diagnostics.
	CreatedLocally bool `json:"created_locally"`
}

// Valid reports whether the identity is well-formed enough to use.
func (d DeviceIdentity) Valid() bool {
	return d.Id != ""
}
