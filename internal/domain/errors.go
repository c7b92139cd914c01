package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is closed")
	ErrUserNotFound    = errors.New("user not found")
	ErrActiveRequest   = errors.New("active request exists")
	ErrEmptyTranscript = errors.New("session has no content to analyze")
	ErrReportNotFound  = errors.New("session report not found")
)
