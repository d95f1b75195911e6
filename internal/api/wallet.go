package api

import (
	"context"  // Context for cache operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"wallet_ledger/internal/domain"     // Domain models and ports
	"wallet_ledger/internal/ledger"     // Ledger engine
	"wallet_ledger/internal/middleware" // Authenticated account
	"wallet_ledger/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
)

// CacheTTL bounds how stale a cached read can be
const CacheTTL = 60 * time.Second

// IdempotencyHeader carries the client retry key
const IdempotencyHeader = "Idempotency-Key"

// DepositRequest is the body of POST /wallet/deposit and POST /wallet/withdraw
type DepositRequest struct {
	Amount         decimal.Decimal `json:"amount"`                            // Amount, as a JSON string or number
	Description    string          `json:"description" binding:"max=255"`     // Optional note
	IdempotencyKey string          `json:"idempotency_key" binding:"max=128"` // Optional retry key, the header wins
}

// TransferRequest is the body of POST /wallet/transfer
type TransferRequest struct {
	ToUserID       uint            `json:"to_user_id"`                        // Recipient account id
	ToUsername     string          `json:"to_username"`                       // Recipient username, used when to_user_id is absent
	Amount         decimal.Decimal `json:"amount"`                            // Amount, as a JSON string or number
	Description    string          `json:"description" binding:"max=255"`     // Optional note
	IdempotencyKey string          `json:"idempotency_key" binding:"max=128"` // Optional retry key, the header wins
}

// idempotencyKey prefers the header over the body field
func idempotencyKey(c *gin.Context, body string) string {
	if key := c.GetHeader(IdempotencyHeader); key != "" {
		return key
	}
	return body
}

func walletCacheKey(accountID uint) string {
	return "wallet:user:" + strconv.FormatUint(uint64(accountID), 10)
}

func historyCachePrefix(accountID uint) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(accountID), 10) + ":"
}

// remember caches a read response and logs failed writes
func remember(ctx context.Context, cache utils.Cache, key string, value any) {
	if err := cache.Set(ctx, key, value, CacheTTL); err != nil {
		logrus.WithFields(logrus.Fields{"cache_key": key, "error": err.Error()}).Warn("Failed to cache response")
	}
}

// invalidate drops the cached balance and history of every touched account
func invalidate(ctx context.Context, cache utils.Cache, accountIDs ...uint) {
	for _, id := range accountIDs {
		if err := cache.Delete(ctx, walletCacheKey(id)); err != nil {
			logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Warn("Failed to invalidate wallet cache")
		}
		if err := cache.DeletePrefix(ctx, historyCachePrefix(id)); err != nil {
			logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Warn("Failed to invalidate history cache")
		}
	}
}

// DepositHandler credits the authenticated account's wallet
func DepositHandler(engine *ledger.Engine, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := middleware.AccountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req DepositRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := engine.Deposit(c.Request.Context(), ledger.DepositRequest{
			AccountID:      accountID,                             // Authenticated account
			Amount:         req.Amount,                            // Validated by the engine
			Description:    req.Description,                       // Optional note
			IdempotencyKey: idempotencyKey(c, req.IdempotencyKey), // Optional retry key
		})
		if err != nil {
			respondError(c, err, "Deposit failed")
			return
		}
		invalidate(c.Request.Context(), cache, accountID)
		c.JSON(http.StatusOK, gin.H{
			"message":     "Deposit successful", // Success message
			"balance":     res.Balance,          // New balance
			"transaction": res.Transaction,      // Appended transaction
			"replayed":    res.Replayed,         // Served from a previous execution
		})
	}
}

// WithdrawHandler debits the authenticated account's wallet
func WithdrawHandler(engine *ledger.Engine, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := middleware.AccountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req DepositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := engine.Withdraw(c.Request.Context(), ledger.WithdrawRequest{
			AccountID:      accountID,
			Amount:         req.Amount,
			Description:    req.Description,
			IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		})
		if err != nil {
			respondError(c, err, "Withdrawal failed")
			return
		}
		invalidate(c.Request.Context(), cache, accountID)
		c.JSON(http.StatusOK, gin.H{
			"message":     "Withdrawal successful",
			"balance":     res.Balance,
			"transaction": res.Transaction,
			"replayed":    res.Replayed,
		})
	}
}

// TransferHandler moves funds from the authenticated account to another account
func TransferHandler(engine *ledger.Engine, users domain.UserStore, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromID, ok := middleware.AccountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		toID := req.ToUserID // Recipient by id, or resolved by username below
		if toID == 0 && req.ToUsername != "" {
			target, err := users.GetUserByUsername(c.Request.Context(), req.ToUsername)
			if err != nil {
				respondError(c, err, "Transfer failed")
				return
			}
			toID = target.ID
		}
		if toID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Recipient is required"})
			return
		}
		res, err := engine.Transfer(c.Request.Context(), ledger.TransferRequest{
			FromAccountID:  fromID,                                // Authenticated sender
			ToAccountID:    toID,                                  // Recipient
			Amount:         req.Amount,                            // Validated by the engine
			Description:    req.Description,                       // Optional note
			IdempotencyKey: idempotencyKey(c, req.IdempotencyKey), // Optional retry key
		})
		if err != nil {
			respondError(c, err, "Transfer failed")
			return
		}
		invalidate(c.Request.Context(), cache, fromID, toID)
		c.JSON(http.StatusOK, gin.H{
			"message":      "Transfer successful",
			"from_balance": res.FromBalance,
			"transaction":  res.Transaction,
			"replayed":     res.Replayed,
		})
	}
}

// GetWalletHandler returns the authenticated account's balance, cached for CacheTTL
func GetWalletHandler(engine *ledger.Engine, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := middleware.AccountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := walletCacheKey(accountID)
		var cached ledger.Balance
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": cached, "cached": true})
			return
		}
		balance, err := engine.GetBalance(ctx, accountID)
		if err != nil {
			respondError(c, err, "Failed to fetch wallet")
			return
		}
		remember(ctx, cache, cacheKey, balance) // Best effort
		c.JSON(http.StatusOK, gin.H{"wallet": balance, "cached": false})
	}
}

// GetTransactionHistoryHandler pages through the authenticated account's transactions
func GetTransactionHistoryHandler(engine *ledger.Engine, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := middleware.AccountID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := queryInt(c, "page", 1)                               // Default page
		pageSize := queryInt(c, "page_size", ledger.DefaultPageSize) // Default page size
		ctx := c.Request.Context()
		cacheKey := historyCachePrefix(accountID) + "page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		var cached ledger.History
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"history": cached, "cached": true})
			return
		}
		history, err := engine.History(ctx, accountID, page, pageSize)
		if err != nil {
			respondError(c, err, "Failed to fetch transactions")
			return
		}
		remember(ctx, cache, cacheKey, history)
		c.JSON(http.StatusOK, gin.H{"history": history, "cached": false})
	}
}

// queryInt reads a positive integer query parameter, falling back to def
func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v
	}
	return def
}
