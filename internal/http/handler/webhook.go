package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/http/dto"
	"github.com/forma22-agency/gh-dispatch-relay/internal/http/middleware"
	"github.com/forma22-agency/gh-dispatch-relay/internal/service"
)

// maxWebhookBody bounds inbound alert size. StackRox alerts with many
// violations stay well under it.
const maxWebhookBody = 5 << 20

type WebhookHandler struct {
	relay service.RelayService
}

func NewWebhookHandler(relay service.RelayService) *WebhookHandler {
	return &WebhookHandler{relay: relay}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Detail: "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: "failed to read request body"})
		return
	}

	var alert any
	if err := json.Unmarshal(body, &alert); err != nil {
		slog.WarnContext(ctx, "invalid webhook body", "error", err)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: "invalid JSON body"})
		return
	}

	result, err := h.relay.Relay(ctx, service.RelayParams{
		DeliveryID: middleware.GetDeliveryID(c),
		Alert:      alert,
		Raw:        body,
	})
	if err != nil {
		writeRelayError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RelayResponse{
		OK:         true,
		Repository: result.Repository.FullName(),
		DeliveryID: result.DeliveryID,
	})
}

// writeRelayError is the single place relay failures become HTTP answers.
func writeRelayError(c *gin.Context, err error) {
	var failure *domain.DispatchFailure
	if errors.As(err, &failure) {
		c.Data(failure.StatusCode, bodyContentType(failure.Body), failure.Body)
		return
	}

	var (
		authErr     *domain.UpstreamAuthError
		upstreamErr *domain.UpstreamError
	)
	switch {
	case errors.Is(err, domain.ErrRepositoryResolution):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrConfiguration):
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrInstallationNotFound):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrPolicyDenied):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Detail: domain.ErrPolicyDenied.Error()})
	case errors.As(err, &authErr), errors.As(err, &upstreamErr):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Detail: err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "relay failed", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "internal server error"})
	}
}

// bodyContentType labels GitHub's body the way GitHub did, approximately:
// JSON when it parses as JSON, plain text otherwise.
func bodyContentType(body []byte) string {
	if len(body) > 0 && json.Valid(body) {
		return "application/json; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
