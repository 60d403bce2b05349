package middleware

import (
	"net/http"

	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/alimikegami/digital-store/settlement-service/pkg/response"
	"github.com/alimikegami/digital-store/settlement-service/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func IsLoggedIn(jwtSecret string) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey: []byte(jwtSecret),
		ErrorHandlerWithContext: func(err error, c echo.Context) error {
			errorResponse := map[string]interface{}{
				"status":  "error",
				"message": "Invalid or expired JWT",
				"errors":  nil,
			}
			return c.JSON(http.StatusUnauthorized, errorResponse)
		},
	})
}

// OperatorOnly must run after IsLoggedIn.
func OperatorOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, _, role := utils.ExtractTokenUser(c)
		if role != utils.RoleOperator {
			return response.WriteErrorResponse(c, errs.ErrUnauthorized, nil)
		}
		return next(c)
	}
}
