package form

import "errors"

var (
	// ErrRelationshipNotFound reports that the parent model declares no
	// relationship targeting the inline's model.
	ErrRelationshipNotFound = errors.New("form: relationship not found")
	// ErrAmbiguousRelationship reports more than one candidate relationship.
	ErrAmbiguousRelationship = errors.New("form: ambiguous relationship")
	// ErrUnsupportedRelationship reports a relationship that does not hold a
	// collection.
	ErrUnsupportedRelationship = errors.New("form: unsupported relationship")
	// ErrChildNotFound is returned by Populate when a submitted primary key
	// no longer matches a row.
	ErrChildNotFound = errors.New("form: inline object not found")
	// ErrInconsistentEntry is returned when submitted primary keys disagree
	// with the reconciled entries.
	ErrInconsistentEntry = errors.New("form: inconsistent inline entry")
	// ErrMissingKey is returned when a persisted inline object lacks its
	// primary key attributes.
	ErrMissingKey = errors.New("form: object has no primary key")
	// ErrNoSession is returned when an operation needs a persistence session
	// and none was configured.
	ErrNoSession = errors.New("form: session is required")
)
