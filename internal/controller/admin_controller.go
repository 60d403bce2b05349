package controller

import (
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/service"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/alimikegami/digital-store/settlement-service/pkg/response"
	"github.com/alimikegami/digital-store/settlement-service/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type AdminController struct {
	settlement service.SettlementService
	wallet     service.WalletService
}

func CreateAdminController(e *echo.Group, settlement service.SettlementService, wallet service.WalletService, isLoggedIn, operatorOnly echo.MiddlewareFunc) {
	c := AdminController{
		settlement: settlement,
		wallet:     wallet,
	}

	admin := e.Group("/admin", isLoggedIn, operatorOnly)
	admin.GET("/orders", c.GetOrders)
	admin.POST("/orders/:order_id/verify", c.VerifyOrder)
	admin.POST("/orders/:order_id/confirm", c.ConfirmOrder)
	admin.POST("/wallet/credits", c.CreditWallet)
}

func (c *AdminController) GetOrders(e echo.Context) error {
	filter := pkgdto.Filter{}
	err := e.Bind(&filter)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "GetOrders").Msg("")
	}

	resp, err := c.settlement.GetOrders(e.Request().Context(), filter)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "successfuly retrieved orders record", resp)
}

func (c *AdminController) VerifyOrder(e echo.Context) error {
	resp, err := c.settlement.VerifyOrder(e.Request().Context(), e.Param("order_id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *AdminController) ConfirmOrder(e echo.Context) error {
	_, operator, _ := utils.ExtractTokenUser(e)

	payload := dto.ManualConfirmationRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "ConfirmOrder").Msg("")
	}
	if operator != "" {
		payload.Note = operator + ": " + payload.Note
	}

	resp, err := c.settlement.ConfirmManually(e.Request().Context(), e.Param("order_id"), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *AdminController) CreditWallet(e echo.Context) error {
	payload := dto.WalletCreditRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "CreditWallet").Msg("")
	}

	resp, err := c.wallet.Credit(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "wallet credited", resp)
}
