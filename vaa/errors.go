package vaa

import "errors"

var (
	// ErrEncoding is returned when a governance action, envelope or signed VAA is malformed.
	ErrEncoding = errors.New("encoding error")
	// ErrSigning is returned for malformed guardian key material or an invalid signer set.
	ErrSigning = errors.New("signing error")
)
