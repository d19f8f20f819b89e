package domain

import "errors"

var (
	ErrSettingsNotFound  = errors.New("autopilot settings not found")
	ErrEntryNotFound     = errors.New("schedule entry not found")
	ErrQueueItemNotFound = errors.New("queue item not found")
	ErrDuplicateItem     = errors.New("queue item already exists")
)
