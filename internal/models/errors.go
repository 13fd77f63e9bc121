package models

import "errors"

// Error kinds shared by the hierarchy store, its persisted document and the
// layers that present results to the user. Match them with errors.Is.
var (
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrNotFound        = errors.New("not found")
	ErrShapeConflict   = errors.New("shape conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrParse           = errors.New("parse error")
	ErrPersistence     = errors.New("persistence error")
)
