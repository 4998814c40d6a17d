package application

import "errors"

var ErrProviderNotFound = errors.New("provider not found")
var ErrStoreUnavailable = errors.New("cache store unavailable")
var ErrStoreNotConfigured = errors.New("cache store not configured")
