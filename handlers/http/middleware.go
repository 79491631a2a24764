package httpHandler

import (
	"net/http"
	"strings"

	"iot-hub/entities"
	"iot-hub/repositories"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// AuthMiddleware resolves "Authorization: Token <token>" into a Principal:
// the system credential yields SystemIdentity, anything else is looked up
// as a device identifier. Token comparison is a plain lookup by design.
type AuthMiddleware struct {
	devices     repositories.DeviceRepository
	systemToken string
}

func NewAuthMiddleware(devices repositories.DeviceRepository, systemToken string) *AuthMiddleware {
	return &AuthMiddleware{devices: devices, systemToken: systemToken}
}

// Require authenticates the request and stores the Principal in the
// context.
func (m *AuthMiddleware) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "token") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "expected 'Token <token>' Authorization header"})
			return
		}
		token := parts[1]

		if m.systemToken != "" && token == m.systemToken {
			c.Set(principalKey, entities.SystemPrincipal())
			c.Next()
			return
		}

		device, err := m.devices.GetByDeviceID(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid device token"})
			return
		}
		c.Set(principalKey, entities.DevicePrincipal(device))
		c.Next()
	}
}

// RequireSystem allows only the system credential through. Must run after
// Require.
func (m *AuthMiddleware) RequireSystem() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || !p.IsSystem() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "system credential required"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal set by Require.
func PrincipalFrom(c *gin.Context) (entities.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return entities.Principal{}, false
	}
	p, ok := v.(entities.Principal)
	return p, ok
}
