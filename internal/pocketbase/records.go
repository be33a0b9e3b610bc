package pocketbase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bitor-console/internal/types"
)

const (
	userMessagesCollection = "user_messages"
	nucleiScansCollection  = "nuclei_scans"

	messagesPerPage = 50
)

// listResponse is the paginated envelope of a records list
type listResponse[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}

// scanRecord holds the nuclei_scans fields that describe progress
type scanRecord struct {
	ID                     string  `json:"id"`
	Status                 string  `json:"status"`
	ProgressPercentage     float64 `json:"progress_percentage"`
	CurrentTarget          string  `json:"current_target"`
	TotalTargets           *int    `json:"total_targets"`
	CompletedTargets       *int    `json:"completed_targets"`
	StartTime              string  `json:"start_time"`
	EstimatedTimeRemaining string  `json:"estimated_time_remaining"`
}

// ListUserMessages returns the newest messages addressed to userID
func (c *Client) ListUserMessages(ctx context.Context, userID string, unreadOnly bool) ([]types.UserMessage, error) {
	filter := fmt.Sprintf("userId = %q", userID)
	if unreadOnly {
		filter += " && read = false"
	}

	var list listResponse[types.UserMessage]
	err := c.Send(ctx, http.MethodGet, recordsPath(userMessagesCollection), &types.PocketBaseOptions{
		Query: map[string]any{
			"filter":  filter,
			"sort":    "-created",
			"perPage": messagesPerPage,
		},
	}, &list)
	if err != nil {
		return nil, fmt.Errorf("list user messages: %w", err)
	}
	return list.Items, nil
}

// MarkRead flags a message as read
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	err := c.Send(ctx, http.MethodPatch, recordPath(userMessagesCollection, messageID), &types.PocketBaseOptions{
		Body: map[string]any{"read": true},
	}, nil)
	if err != nil {
		return fmt.Errorf("mark message %s read: %w", messageID, err)
	}
	return nil
}

// GetScanProgress reads the progress fields of a nuclei scan
func (c *Client) GetScanProgress(ctx context.Context, scanID string) (*types.ScanProgress, error) {
	var rec scanRecord
	if err := c.Send(ctx, http.MethodGet, recordPath(nucleiScansCollection, scanID), nil, &rec); err != nil {
		return nil, fmt.Errorf("get scan %s: %w", scanID, err)
	}

	pct := int(rec.ProgressPercentage)
	pct = max(0, min(100, pct))

	progress := &types.ScanProgress{
		Percentage:             pct,
		Status:                 scanStatus(rec.Status),
		CurrentTarget:          rec.CurrentTarget,
		TotalTargets:           rec.TotalTargets,
		CompletedTargets:       rec.CompletedTargets,
		StartTime:              rec.StartTime,
		EstimatedTimeRemaining: rec.EstimatedTimeRemaining,
	}
	return progress, nil
}

// scanStatus maps the backend's free-form status onto the four known states
func scanStatus(s string) types.ScanStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running", "started", "in_progress":
		return types.ScanRunning
	case "completed", "finished", "done":
		return types.ScanCompleted
	case "failed", "error", "cancelled", "stopped":
		return types.ScanFailed
	}
	return types.ScanPending
}

func recordsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

func recordPath(collection, id string) string {
	return recordsPath(collection) + "/" + url.PathEscape(id)
}
