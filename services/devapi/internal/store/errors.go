package store

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("already exists")
	ErrInvalidParent = errors.New("parent comment must be a top-level comment of the same thread")
	ErrInvalidVote   = errors.New("reaction must be begeni or begenmeme")
)
