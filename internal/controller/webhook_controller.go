package controller

import (
	"errors"
	"fmt"
	"io"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/internal/service"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/alimikegami/digital-store/settlement-service/pkg/response"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type WebhookController struct {
	service service.SettlementService
}

func CreateWebhookController(e *echo.Group, service service.SettlementService) {
	c := WebhookController{
		service: service,
	}

	e.POST("/webhooks/card", c.handle(domain.PaymentMethodCard))
	e.POST("/webhooks/express", c.handle(domain.PaymentMethodExpress))
	e.GET("/callbacks/express", c.handle(domain.PaymentMethodExpress))
	e.POST("/webhooks/reference", c.handle(domain.PaymentMethodReference))
}

// handle passes the raw delivery through untouched so signatures can be
// checked against the exact bytes the provider sent.
func (c *WebhookController) handle(method domain.PaymentMethod) echo.HandlerFunc {
	return func(e echo.Context) error {
		req := e.Request()

		var body []byte
		if req.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
			if err != nil {
				return response.WriteErrorResponse(e, fmt.Errorf("reading body: %v: %w", err, errs.ErrMalformedPayload), nil)
			}
		}

		resp, err := c.service.HandleInbound(req.Context(), method, provider.Inbound{
			Body:   body,
			Query:  req.URL.Query(),
			Header: req.Header,
		})
		if errors.Is(err, errs.ErrInconsistentState) {
			// already logged and alerted; redelivery cannot change the outcome
			return response.WriteSuccessResponse(e, errs.ErrInconsistentState.Error(), resp)
		}
		if err != nil {
			return response.WriteErrorResponse(e, err, nil)
		}

		return response.WriteSuccessResponse(e, "", resp)
	}
}
