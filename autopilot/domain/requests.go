package domain

// SettingsUpsertRequest is the configuration surface payload for a pair.
type SettingsUpsertRequest struct {
	AccountID           string  `json:"account_id"`
	Platform            string  `json:"platform"`
	Enabled             bool    `json:"enabled"`
	AutoScheduleEnabled bool    `json:"auto_schedule_enabled"`
	AutoReplyEnabled    bool    `json:"auto_reply_enabled"`
	IntervalHours       float64 `json:"interval_hours"`
	Connected           bool    `json:"connected"`
}

// QueueSubmitRequest is one unit of content entering the intake queue.
type QueueSubmitRequest struct {
	Fingerprint string `json:"fingerprint"`
	AccountID   string `json:"account_id"`
	Platform    string `json:"platform"`
	CaptionText string `json:"caption_text"`
}

// ConnectionUpdateRequest toggles the platform-connection mirror flag.
type ConnectionUpdateRequest struct {
	Connected bool `json:"connected"`
}

// OperationalUpdateRequest drives the runtime pause switches.
type OperationalUpdateRequest struct {
	SweepPaused    *bool  `json:"sweep_paused"`
	DispatchPaused *bool  `json:"dispatch_paused"`
	PauseReason    string `json:"pause_reason"`
}
