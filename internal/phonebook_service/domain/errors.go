package domain

import "errors"

var (
	// ErrNotFound indicates the requested contact does not exist.
	ErrNotFound = errors.New("requested entity not found")
	// ErrDuplicateEntry indicates a unique constraint violation, e.g. phone number already present.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrUnsupportedFormat indicates an uploaded file type the importer cannot parse.
	ErrUnsupportedFormat = errors.New("unsupported contact file format")
	// ErrNoValidContacts indicates a parsed file yielded zero usable rows.
	ErrNoValidContacts = errors.New("no valid contacts found in file")
)
