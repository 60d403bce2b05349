package utils

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
)

const RoleOperator = "operator"

func CreateJWTToken(userID int64, userName string, role string, jwtSecretKey string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}
	claims["authorized"] = true
	claims["userID"] = userID
	claims["name"] = userName
	claims["role"] = role
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(jwtSecretKey))
}

// ExtractTokenUser reads the operator set on the context by the auth middleware.
func ExtractTokenUser(c echo.Context) (uint64, string, string) {
	user, ok := c.Get("user").(*jwt.Token)
	if !ok || !user.Valid {
		return 0, "", ""
	}

	claims, ok := user.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ""
	}

	userID, _ := claims["userID"].(float64)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)

	return uint64(userID), name, role
}
