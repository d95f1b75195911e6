package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"wallet_ledger/internal/domain" // Domain models
	"wallet_ledger/internal/ledger" // Ledger engine
	"wallet_ledger/internal/utils"  // Cache helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// TopTransactionsHandler lists the largest transactions of one account, or of
// every account when account_id is "all" or absent. Responses are cached for
// CacheTTL; reports tolerate that staleness.
func TopTransactionsHandler(engine *ledger.Engine, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := c.DefaultQuery("account_id", "all")             // Account id or "all"
		limit := queryInt(c, "limit", ledger.DefaultReportLimit) // Number of rows
		var accountID *uint                                      // Nil selects every account
		if scope != "all" {
			id, err := strconv.ParseUint(scope, 10, 64)
			if err != nil || id == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "account_id must be a positive id or \"all\""})
				return
			}
			v := uint(id)
			accountID = &v
		}
		ctx := c.Request.Context()
		cacheKey := "admin:top:txs:" + scope + ":" + strconv.Itoa(limit)
		var cached []domain.Transaction
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"transactions": cached, "cached": true})
			return
		}
		txs, err := engine.TopTransactions(ctx, accountID, limit)
		if err != nil {
			respondError(c, err, "Failed to fetch transactions")
			return
		}
		remember(ctx, cache, cacheKey, txs)
		c.JSON(http.StatusOK, gin.H{"transactions": txs, "cached": false})
	}
}

// TopAccountsHandler ranks accounts by transaction volume. A transfer counts
// toward both the sender and the receiver.
func TopAccountsHandler(engine *ledger.Engine, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", ledger.DefaultReportLimit)
		ctx := c.Request.Context()
		cacheKey := "admin:top:accounts:" + strconv.Itoa(limit)
		var cached []domain.AccountVolume
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"accounts": cached, "cached": true})
			return
		}
		rows, err := engine.TopAccountsByVolume(ctx, limit)
		if err != nil {
			respondError(c, err, "Failed to fetch accounts")
			return
		}
		remember(ctx, cache, cacheKey, rows)
		c.JSON(http.StatusOK, gin.H{"accounts": rows, "cached": false})
	}
}
