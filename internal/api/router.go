package api

import (
	"wallet_ledger/internal/domain"     // Store ports
	"wallet_ledger/internal/ledger"     // Ledger engine
	"wallet_ledger/internal/middleware" // Auth middleware
	"wallet_ledger/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// Deps are the collaborators the HTTP layer calls into
type Deps struct {
	Engine    *ledger.Engine   // Sole writer of balances and transactions
	Users     domain.UserStore // Login and admin role lookups
	Cache     utils.Cache      // Read cache, utils.NopCache{} when Redis is off
	JWTSecret string           // HS256 signing secret
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if deps.Cache == nil {
		deps.Cache = utils.NopCache{}
	}

	// Auth routes
	r.POST("/user", RegisterHandler(deps.Engine))            // Registration endpoint
	r.GET("/user", LoginHandler(deps.Users, deps.JWTSecret)) // Login endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))
	walletGroup.GET("", GetWalletHandler(deps.Engine, deps.Cache))                          // Balance endpoint
	walletGroup.POST("/deposit", DepositHandler(deps.Engine, deps.Cache))                   // Deposit endpoint
	walletGroup.POST("/withdraw", WithdrawHandler(deps.Engine, deps.Cache))                 // Withdrawal endpoint
	walletGroup.POST("/transfer", TransferHandler(deps.Engine, deps.Users, deps.Cache))     // Transfer endpoint
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(deps.Engine, deps.Cache)) // Transaction history endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(deps.JWTSecret), middleware.AdminOnlyMiddleware(deps.Users))
	adminGroup.GET("/transactions/top", TopTransactionsHandler(deps.Engine, deps.Cache)) // Largest transactions
	adminGroup.GET("/accounts/top", TopAccountsHandler(deps.Engine, deps.Cache))         // Accounts by volume
}
