package hub

import "errors"

// Hub lifecycle errors
var (
	ErrHubAlreadyRunning  = errors.New("hub is already running")
	ErrHubNotRunning      = errors.New("hub is not running")
	ErrRequestChannelFull = errors.New("request channel is full")
	ErrConnectChannelFull = errors.New("connect channel is full")
)
