package middleware

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"wallet_ledger/internal/domain" // Domain models and ports

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AdminOnlyMiddleware checks the account's role in the store on each request,
// so a demoted admin loses access before the token expires.
func AdminOnlyMiddleware(users domain.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := AccountID(c) // Set by JWTAuthMiddleware
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := users.GetUser(c.Request.Context(), accountID) // Fetch account from store
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"account_id": accountID,   // Requesting account
				"error":      err.Error(), // Error message
			}).Error("Admin check failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
			return
		}
		// Unknown accounts and non-admins are both forbidden
		if err != nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next() // Admin, proceed to the next handler
	}
}
