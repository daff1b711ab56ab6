package model

import "errors"

// ErrIndexOutOfRange is returned by store mutations addressed at a position
// outside [0, count).
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrInvalidArgument is returned for arguments a component cannot act on,
// such as a non-positive day count or a blank required field.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrIOFailure wraps a file that could not be opened, read or written.
var ErrIOFailure = errors.New("io failure")

// ErrMalformedInput is returned when a byte stream cannot be decoded as text.
// Irregular CSV rows are tolerated and never produce it.
var ErrMalformedInput = errors.New("malformed input")

// ErrNotFound is returned when a saved snapshot does not exist.
var ErrNotFound = errors.New("not found")
