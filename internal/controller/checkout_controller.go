package controller

import (
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/service"
	"github.com/alimikegami/digital-store/settlement-service/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type CheckoutController struct {
	service service.CheckoutService
}

func CreateCheckoutController(e *echo.Group, service service.CheckoutService, rateLimit echo.MiddlewareFunc) {
	c := CheckoutController{
		service: service,
	}

	e.POST("/checkout/orders", c.Checkout, rateLimit)
	e.GET("/checkout/orders/:order_id", c.GetOrderStatus)
}

func (c *CheckoutController) Checkout(e echo.Context) error {
	payload := dto.CheckoutRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "Checkout").Msg("")
	}

	resp, err := c.service.Checkout(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *CheckoutController) GetOrderStatus(e echo.Context) error {
	resp, err := c.service.GetOrderStatus(e.Request().Context(), e.Param("order_id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}
