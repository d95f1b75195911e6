package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"wallet_ledger/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// accountIDKey is the gin context key holding the authenticated account
const accountIDKey = "accountID"

// JWTAuthMiddleware validates bearer tokens and stores the account id in the context
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(accountIDKey, claims.AccountID) // Store account id in context
		c.Next()                              // Proceed to the next handler
	}
}

// AccountID returns the account authenticated by JWTAuthMiddleware
func AccountID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(accountIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
