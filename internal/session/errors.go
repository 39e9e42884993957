package session

import "errors"

var (
	// ErrSessionAbandoned 会话在结束前被新的提交或 Restart 取代
	ErrSessionAbandoned = errors.New("session abandoned")
	ErrNoSession        = errors.New("no active session")
)
