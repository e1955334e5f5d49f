package entity

import (
	"fmt"
	"time"
)

// Sync run statuses
const (
	SyncStatusStarted        = "started"
	SyncStatusInProgress     = "in_progress"
	SyncStatusSuccess        = "success"
	SyncStatusPartialSuccess = "partial_success"
	SyncStatusError          = "error"
	SyncStatusTimeout        = "timeout"
	SyncStatusCancelled      = "cancelled"
)

// Sync run triggers
const (
	TriggeredManual    = "manual"
	TriggeredScheduler = "scheduler"
	TriggeredRetry     = "retry"
)

// Change categories recorded in ChangesMade
const (
	ChangeCreated  = "created"
	ChangeUpdated  = "updated"
	ChangePushed   = "pushed"
	ChangeResolved = "resolved"
)

// SyncConflict records a local/remote disagreement found during inbound
// sync. Conflicts are never silently overwritten away; the applied
// resolution (if any) is recorded next to both values.
type SyncConflict struct {
	ItemType    string    `bson:"itemType"`
	ItemKey     string    `bson:"itemKey"`
	Field       string    `bson:"field"`
	LocalValue  string    `bson:"localValue"`
	RemoteValue string    `bson:"remoteValue"`
	Resolution  string    `bson:"resolution"`
	DetectedAt  time.Time `bson:"detectedAt"`
}

// SyncLog is the append-only record of one sync run
type SyncLog struct {
	ID         string `bson:"_id,omitempty"`
	RunKey     string `bson:"runKey"` // {configID}:{unixNano} - unique index
	ConfigID   uint   `bson:"configId"`
	TenantID   string `bson:"tenantId"`
	PropertyID string `bson:"propertyId"`

	Kind        string `bson:"kind"` // empty = all enabled kinds
	Direction   string `bson:"direction"`
	Status      string `bson:"status"`
	TriggeredBy string `bson:"triggeredBy"`

	DateFrom    time.Time `bson:"dateFrom"`
	DateTo      time.Time `bson:"dateTo"`
	RoomIDs     []string  `bson:"roomIds,omitempty"`
	RatePlanIDs []string  `bson:"ratePlanIds,omitempty"`

	TotalItems     int `bson:"totalItems"`
	ProcessedItems int `bson:"processedItems"`
	SuccessItems   int `bson:"successItems"`
	ErrorItems     int `bson:"errorItems"`
	SkippedItems   int `bson:"skippedItems"`

	ChangesMade map[string]int `bson:"changesMade,omitempty"`
	Conflicts   []SyncConflict `bson:"conflicts,omitempty"`

	ErrorCode    string `bson:"errorCode,omitempty"`
	ErrorMessage string `bson:"errorMessage,omitempty"`
	RetryCount   int    `bson:"retryCount"`

	APICallCount     int   `bson:"apiCallCount"`
	BytesTransferred int64 `bson:"bytesTransferred"`

	StartedAt   time.Time  `bson:"startedAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	DurationMs  int64      `bson:"durationMs"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// NewSyncLog opens the log for a fresh run in the started state
func NewSyncLog(cfg *ChannelConfiguration, kind, direction, triggeredBy string, dateFrom, dateTo time.Time, now time.Time) *SyncLog {
	return &SyncLog{
		RunKey:      fmt.Sprintf("%d:%d", cfg.ID, now.UnixNano()),
		ConfigID:    cfg.ID,
		TenantID:    cfg.TenantID,
		PropertyID:  cfg.PropertyID,
		Kind:        kind,
		Direction:   direction,
		Status:      SyncStatusStarted,
		TriggeredBy: triggeredBy,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		ChangesMade: make(map[string]int),
		StartedAt:   now,
		CreatedAt:   now,
	}
}

// TerminalSyncStatuses are the statuses a log can never leave
func TerminalSyncStatuses() []string {
	return []string{
		SyncStatusSuccess,
		SyncStatusPartialSuccess,
		SyncStatusError,
		SyncStatusTimeout,
		SyncStatusCancelled,
	}
}

// IsTerminal reports whether the run has finished
func (l *SyncLog) IsTerminal() bool {
	switch l.Status {
	case SyncStatusSuccess, SyncStatusPartialSuccess, SyncStatusError,
		SyncStatusTimeout, SyncStatusCancelled:
		return true
	}
	return false
}

// RecordItem accounts one processed item under exactly one outcome
func (l *SyncLog) RecordItem(outcome string) {
	l.ProcessedItems++
	switch outcome {
	case "success":
		l.SuccessItems++
	case "error":
		l.ErrorItems++
	case "skipped":
		l.SkippedItems++
	}
}

// RecordChange bumps a change-category counter
func (l *SyncLog) RecordChange(category string) {
	if l.ChangesMade == nil {
		l.ChangesMade = make(map[string]int)
	}
	l.ChangesMade[category]++
}

// AddConflict appends a conflict record
func (l *SyncLog) AddConflict(c SyncConflict) {
	l.Conflicts = append(l.Conflicts, c)
}

// ErrorRatio is the share of processed items that errored
func (l *SyncLog) ErrorRatio() float64 {
	if l.ProcessedItems == 0 {
		return 0
	}
	return float64(l.ErrorItems) / float64(l.ProcessedItems)
}

// Finish moves the log to a terminal status and fixes the duration from the
// actual started/completed pair, never from a mid-run estimate
func (l *SyncLog) Finish(status string, now time.Time) {
	l.Status = status
	l.CompletedAt = &now
	l.DurationMs = now.Sub(l.StartedAt).Milliseconds()
}
