package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownTab         = errors.New("unknown source tab")
	ErrExportRunning      = errors.New("export already in progress")
	ErrExportBlocked      = errors.New("export blocked by validation")
	ErrExceedsBalance     = errors.New("investment amount exceeds available balance")
	ErrPerQuestionMinimum = errors.New("investment per question must be at least $10")
)
