package upgrade

import "errors"

// ErrResolution is returned when the package id cannot be read from the state object.
var ErrResolution = errors.New("package resolution failed")
