package controller

import (
	"strconv"

	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/service"
	"github.com/alimikegami/digital-store/settlement-service/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const defaultTransactionLimit = 50

type WalletController struct {
	wallet     service.WalletService
	settlement service.SettlementService
}

func CreateWalletController(e *echo.Group, wallet service.WalletService, settlement service.SettlementService, rateLimit echo.MiddlewareFunc) {
	c := WalletController{
		wallet:     wallet,
		settlement: settlement,
	}

	e.POST("/wallet/accounts", c.Register, rateLimit)
	e.GET("/wallet/accounts/:email", c.GetBalance)
	e.GET("/wallet/accounts/:email/transactions", c.GetTransactions)
	e.POST("/wallet/payments", c.Pay, rateLimit)
}

func (c *WalletController) Register(e echo.Context) error {
	payload := dto.WalletRegisterRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "WalletRegister").Msg("")
	}

	resp, err := c.wallet.Register(e.Request().Context(), payload.Email)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "wallet registered", resp)
}

func (c *WalletController) GetBalance(e echo.Context) error {
	resp, err := c.wallet.GetBalance(e.Request().Context(), e.Param("email"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *WalletController) GetTransactions(e echo.Context) error {
	limit := defaultTransactionLimit
	if v := e.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	resp, err := c.wallet.GetTransactions(e.Request().Context(), e.Param("email"), limit)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}

func (c *WalletController) Pay(e echo.Context) error {
	payload := dto.WalletPaymentRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Ctx(e.Request().Context()).Error().Err(err).Str("component", "WalletPay").Msg("")
	}

	resp, err := c.settlement.ConfirmWalletPayment(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", resp)
}
