package notifyapi

import "errors"

var (
	ErrStart    = errors.New("notifyapi: failed to start server")
	ErrShutdown = errors.New("notifyapi: failed to shutdown server")
)
