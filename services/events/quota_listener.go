package events

import (
	"context"

	"github.com/mailvault/mailvault/interfaces"
	"github.com/mailvault/mailvault/internal/logger"
	"github.com/mailvault/mailvault/internal/models"
)

// QuotaStateListener adapts the publisher into a quota monitor
// subscriber. Publish failures are logged, not propagated: the
// monitor's broadcast loop is not the place to retry a broker.
func QuotaStateListener(publisher *RabbitMQPublisher, log logger.Logger) interfaces.QuotaListener {
	return func(state models.QuotaState) {
		if err := publisher.PublishQuotaStateChanged(context.Background(), state); err != nil {
			log.Errorf("Failed to publish quota state change: %v", err)
		}
	}
}
