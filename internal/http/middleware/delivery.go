package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/forma22-agency/gh-dispatch-relay/common/id"
	"github.com/forma22-agency/gh-dispatch-relay/common/logger"
)

const (
	// DeliveryHeader carries the relay's id for an inbound webhook.
	DeliveryHeader = "X-Relay-Delivery"

	deliveryIDKey = "delivery_id"
)

// DeliveryID tags each request with a fresh snowflake id. The id is echoed
// in DeliveryHeader and attached to every log line written for the request.
func DeliveryID() gin.HandlerFunc {
	return func(c *gin.Context) {
		deliveryID := id.NewDeliveryID()

		c.Set(deliveryIDKey, deliveryID)
		c.Header(DeliveryHeader, deliveryID)

		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{DeliveryID: &deliveryID})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetDeliveryID returns the id assigned by DeliveryID, or "" outside it.
func GetDeliveryID(c *gin.Context) string {
	return c.GetString(deliveryIDKey)
}
