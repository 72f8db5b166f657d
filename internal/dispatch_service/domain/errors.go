package domain

import "errors"

// Precondition errors. These are reported before any network activity and
// leave no partial state behind; per-contact delivery failures are never
// surfaced as errors.
var (
	// ErrMissingCredentials indicates the API key or sender ID was not supplied.
	ErrMissingCredentials = errors.New("api key and sender id are required")
	// ErrEmptyTemplate indicates an empty message template.
	ErrEmptyTemplate = errors.New("message template is required")
	// ErrNoContacts indicates the caller supplied no contacts at all.
	ErrNoContacts = errors.New("no contacts available to send messages")
	// ErrNoPendingContacts indicates a bulk dispatch found no pending contacts.
	ErrNoPendingContacts = errors.New("no pending contacts to send messages to")
	// ErrContactNotFound indicates the requested target contact id does not
	// exist in the supplied contact list.
	ErrContactNotFound = errors.New("contact not found")
)
