// Package discovery lets the queue engine process register itself for
// ops visibility (spec §6's `internal/discovery`): nothing in the
// engine discovers *other* services, since identity/catalog/notifier
// are consumed as in-process Go interfaces.
package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Registry is the self-registration surface this process needs: join
// on startup, heartbeat while running, leave on shutdown.
type Registry interface {
	Register(ctx context.Context, instanceID, serviceName, hostPort string) error
	Deregister(ctx context.Context, instanceID, serviceName string) error
	HealthCheck(instanceID, serviceName string) error
}

// GenerateInstanceID builds a unique per-process instance id for
// registration, e.g. "queue-engine-7182934".
func GenerateInstanceID(serviceName string) string {
	return fmt.Sprintf("%s-%d", serviceName, rand.New(rand.NewSource(time.Now().UnixNano())).Int())
}
