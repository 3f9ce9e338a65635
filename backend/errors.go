package backend

import "errors"

var (
	ErrEmptyKind     = errors.New("backend kind is empty")
	ErrAlreadyExists = errors.New("backend kind already registered")
	ErrNotFound      = errors.New("backend kind not registered")
	ErrNoEndpoint    = errors.New("remote backend needs an endpoint or a transport")
)
