package session

import "errors"

// ErrConfig is returned for invalid configuration (missing or short signing secret).
var ErrConfig = errors.New("invalid config")
