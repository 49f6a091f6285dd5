package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/bucket-brigade/internal/auth"
)

const claimsKey = "claims"

// requireScope проверяет bearer-токен и наличие права scope
func (rs *RestServer) requireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Отсутствует токен авторизации")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Неверный формат токена")
			return
		}

		claims, err := rs.issuer.Validate(parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Недействительный токен")
			return
		}
		if !claims.HasScope(scope) {
			abort(c, http.StatusForbidden, "Недостаточно прав доступа")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// operator возвращает имя оператора из проверенного токена
func operator(c *gin.Context) string {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims.Operator
		}
	}
	return ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: message})
}
