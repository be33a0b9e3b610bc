package types

import (
	"net/http"

	apperrors "bitor-console/internal/errors"
)

// ApiResponse is the envelope used by the console API and its clients
type ApiResponse[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps data in a successful response
func OK[T any](data T) ApiResponse[T] {
	return ApiResponse[T]{Success: true, Data: &data}
}

// Failure builds an unsuccessful response from err
func Failure[T any](err error) ApiResponse[T] {
	return ApiResponse[T]{Success: false, Error: apperrors.GetMessage(err)}
}

// ScanStatus is the lifecycle state of a background scan
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// ScanProgress is a snapshot of a background scan
type ScanProgress struct {
	Percentage             int        `json:"percentage"` // 0..100
	Status                 ScanStatus `json:"status"`
	CurrentTarget          string     `json:"currentTarget,omitempty"`
	TotalTargets           *int       `json:"totalTargets,omitempty"`
	CompletedTargets       *int       `json:"completedTargets,omitempty"`
	StartTime              string     `json:"startTime,omitempty"` // ISO 8601
	EstimatedTimeRemaining string     `json:"estimatedTimeRemaining,omitempty"`
}

// MessageType is the severity of a user message
type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
	MessageSuccess MessageType = "success"
)

// UserMessage is a notification addressed to one user account
type UserMessage struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Title          string      `json:"title"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	Read           bool        `json:"read"`
	Created        string      `json:"created"`
	Updated        string      `json:"updated"`
	CollectionID   string      `json:"collectionId,omitempty"`
	CollectionName string      `json:"collectionName,omitempty"`
}

// Doer is satisfied by *http.Client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PocketBaseOptions customizes a single backend request
type PocketBaseOptions struct {
	Fetch   Doer              `json:"-"` // replaces the client's HTTP transport when set
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
	Query   map[string]any    `json:"query,omitempty"`
}
