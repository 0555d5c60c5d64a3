package middleware

import (
	"net/http"
	"strings"

	"orchid/storage"
	"orchid/utils"

	"github.com/gin-gonic/gin"
)

// ContextKTVID is the gin context key under which the authenticated
// technician's id is stored.
const ContextKTVID = "ktvID"

// JWTAuthKTVMiddleware authenticates the technician from the bearer token and
// stores the KTV id in the request context. When a credential store is given,
// the device binding from the X-Device-ID header is recorded there; the store
// is expected to be the sealed variant since device ids are credential-class.
func JWTAuthKTVMiddleware(credStore *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}

		ktvID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil || ktvID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}

		if credStore != nil {
			if deviceID := c.GetHeader("X-Device-ID"); deviceID != "" {
				var known string
				key := storage.KeyDeviceID.For(ktvID)
				if !credStore.Get(c.Request.Context(), key, &known) || known != deviceID {
					credStore.Set(c.Request.Context(), key, deviceID)
				}
			}
		}

		c.Set(ContextKTVID, ktvID)
		c.Next()
	}
}
