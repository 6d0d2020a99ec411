package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/showline/showline/internal/logger"
)

// accountIDKey is the gin context key the middleware stores the resolved
// account under.
const accountIDKey = "auth.account_id"

// RequireCapability returns gin middleware that exchanges the request's
// bearer token for an account identity and aborts unless the account holds
// the given capability. Downstream handlers read the identity via AccountID.
func RequireCapability(checker CapabilityChecker, capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}

		accountID, granted, err := checker.ExchangeSessionAndCheckCapability(c.Request.Context(), token, capability)
		if err != nil {
			if errors.Is(err, ErrInvalidSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
				return
			}
			logger.Error("Capability exchange failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
			return
		}
		if !granted {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "capability denied"})
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

// AccountID returns the account resolved by RequireCapability, or the empty
// string when the middleware did not run.
func AccountID(c *gin.Context) string {
	return c.GetString(accountIDKey)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
