package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"negaboku/internal/service"
)

const authClaimsKey = "auth_claims"

// JWTAuthMiddleware exige un Bearer token valido y guarda los claims en el contexto.
// Con roles no vacio, el claim role del jugador tiene que estar entre ellos (403 si no).
func JWTAuthMiddleware(jwtSvc *service.JWTService, roles ...string) gin.HandlerFunc {
	allowed := roleSet(roles)
	return func(c *gin.Context) {
		if jwtSvc == nil {
			abortJSON(c, http.StatusInternalServerError, "jwt not configured")
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := jwtSvc.ParseAccessToken(token)
		switch {
		case errors.Is(err, service.ErrJWTExpired):
			abortJSON(c, http.StatusUnauthorized, "token expired")
			return
		case err != nil:
			abortJSON(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[claims.Role]; !ok {
				abortJSON(c, http.StatusForbidden, "role not allowed")
				return
			}
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene los claims del jugador autenticado.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

// bearerToken extrae el token de "Bearer <token>". El esquema no distingue mayusculas.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func roleSet(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			set[r] = struct{}{}
		}
	}
	return set
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
