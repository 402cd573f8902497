package repository

import (
	"context"

	"github.com/hszk-dev/adrotate/internal/domain/model"
)

// CampaignTask represents a request to expand and upload one campaign.
type CampaignTask struct {
	Campaign   model.Campaign `json:"campaign"`
	RetryCount int            `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishCampaignTask sends a campaign load task to the queue.
	// Used by the loader when fan-out is delegated to workers.
	PublishCampaignTask(ctx context.Context, task CampaignTask) error

	// ConsumeCampaignTasks starts consuming campaign load tasks from the queue.
	// The handler function is called for each received task.
	// Blocks until ctx is cancelled or the delivery channel closes.
	ConsumeCampaignTasks(ctx context.Context, handler func(task CampaignTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
