// Package temporal owns the process-wide Temporal client and task-queue
// naming shared by the API (workflow starts) and the worker (workflow
// hosting).
package temporal

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.temporal.io/sdk/client"
)

var (
	temporalClient client.Client
	once           sync.Once
	initErr        error
)

// GetClient returns the singleton Temporal client.
func GetClient() (client.Client, error) {
	once.Do(func() {
		host := os.Getenv("TEMPORAL_HOST")
		if host == "" {
			host = "localhost:7233"
		}

		var err error
		temporalClient, err = client.Dial(client.Options{
			HostPort: host,
		})
		if err != nil {
			initErr = fmt.Errorf("failed to create temporal client: %w", err)
			slog.Error("temporal client init failed", "error", err)
			return
		}

		slog.Info("temporal client connected", "host", host)
	})

	if initErr != nil {
		return nil, initErr
	}
	return temporalClient, nil
}

// Close closes the Temporal client.
func Close() {
	if temporalClient != nil {
		temporalClient.Close()
	}
}

// GetTaskQueue returns the scheduler task queue every sync cycle workflow
// is registered and started on.
func GetTaskQueue() string {
	queue := os.Getenv("TEMPORAL_TASK_QUEUE")
	if queue == "" {
		queue = "tracksync-scheduler"
	}
	return queue
}
