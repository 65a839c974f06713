// Package notify publishes recognition events to the locker controllers.
package notify

import (
	"context"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// Notifier receives every accepted match. Implementations must not block the
// recognition path.
type Notifier interface {
	Notify(ctx context.Context, event domain.RecognitionEvent)
	Close()
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Notify(context.Context, domain.RecognitionEvent) {}

func (Noop) Close() {}

// Topic is the MQTT topic recognition events are published to.
func Topic(siteID string) string {
	return "sites/" + siteID + "/faces/recognized"
}
