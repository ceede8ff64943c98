// Package apperr holds the sentinel errors shared by the service layers.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnsupported  = errors.New("unsupported document type")
)
