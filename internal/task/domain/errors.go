package domain

import "errors"

// ErrRemoteNotFound is returned by remote providers when a mirror entry no longer exists
var ErrRemoteNotFound = errors.New("remote task not found")
