// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	TradeExecuted     EventType = "TRADE_EXECUTED"
	TradeRejected     EventType = "TRADE_REJECTED"
	AccountRegistered EventType = "ACCOUNT_REGISTERED"
	BackupCompleted   EventType = "BACKUP_COMPLETED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	EventType() EventType
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	Ref       string `json:"ref"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Cash      string `json:"cash"`
	AccountID int64  `json:"account_id"`
	Shares    int64  `json:"shares"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// TradeRejectedData contains data for TradeRejected events
type TradeRejectedData struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Reason    string `json:"reason"`
	AccountID int64  `json:"account_id"`
	Shares    int64  `json:"shares"`
}

// EventType returns the event type for TradeRejectedData
func (d *TradeRejectedData) EventType() EventType {
	return TradeRejected
}

// AccountRegisteredData contains data for AccountRegistered events
type AccountRegisteredData struct {
	Username  string `json:"username"`
	AccountID int64  `json:"account_id"`
}

// EventType returns the event type for AccountRegisteredData
func (d *AccountRegisteredData) EventType() EventType {
	return AccountRegistered
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Context map[string]interface{} `json:"context,omitempty"`
	Error   string                 `json:"error"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
