package domain

import "errors"

// ErrNotFound marks a lookup that matched no row owned by the caller.
var ErrNotFound = errors.New("not found")
