package ledger

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting
	"strconv" // Fingerprint parameters
	"strings" // Username normalization

	"wallet_ledger/internal/domain"      // Domain models and ports
	"wallet_ledger/internal/idempotency" // Fingerprints

	"github.com/sirupsen/logrus" // Logging library
)

// Deposit credits req.Amount to the account's wallet and appends a DEPOSIT
func (e *Engine) Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	log := e.log.WithFields(logrus.Fields{
		"operation":       domain.OperationDeposit, // Operation name
		"account_id":      req.AccountID,           // Credited account
		"amount":          req.Amount.String(),     // Deposit amount
		"idempotency_key": req.IdempotencyKey,      // Optional retry key
	})
	// Reject bad input before reserving anything
	if req.AccountID == 0 {
		e.logOutcome(log, "Deposit", domain.ErrInvalidAccount)
		return nil, domain.ErrInvalidAccount
	}
	if err := validateAmount(req.Amount); err != nil {
		e.logOutcome(log, "Deposit", err)
		return nil, err
	}
	if err := validateText(req.Description, req.IdempotencyKey); err != nil {
		e.logOutcome(log, "Deposit", err)
		return nil, err
	}

	op := keyedOp{
		name:        domain.OperationDeposit,
		caller:      req.AccountID,
		key:         req.IdempotencyKey,
		fingerprint: idempotency.Fingerprint(domain.OperationDeposit, strconv.FormatUint(uint64(req.AccountID), 10), req.Amount.String()),
	}
	result, replayed, err := execute(ctx, e, op, func(u domain.Unit) (*DepositResult, *domain.Transaction, error) {
		wallet, err := u.Wallets().GetWallet(ctx, req.AccountID)
		if err != nil {
			return nil, nil, err
		}
		updated, err := u.Wallets().AdjustBalance(ctx, wallet.ID, req.Amount, wallet.Version)
		if err != nil {
			return nil, nil, err
		}
		tx, err := u.Transactions().Append(ctx, &domain.Transaction{
			Type:            domain.TransactionTypeDeposit,     // Money entering the ledger
			Status:          domain.TransactionStatusCompleted, // Written only on success
			Amount:          req.Amount,                        // Deposit amount
			ToWalletID:      &updated.ID,                       // Destination only
			Description:     optional(req.Description),         // Optional note
			CallerAccountID: req.AccountID,                     // Issuer
			IdempotencyKey:  optional(req.IdempotencyKey),      // Optional retry key
		})
		if err != nil {
			return nil, nil, err
		}
		return &DepositResult{
			AccountID:   req.AccountID,
			WalletID:    updated.ID,
			Balance:     updated.Balance,
			Transaction: *tx,
		}, tx, nil
	})
	if err != nil {
		e.logOutcome(log, "Deposit", err)
		return nil, err
	}
	result.Replayed = replayed
	e.logOutcome(log.WithFields(logrus.Fields{
		"transaction_id": result.Transaction.ID,   // Appended transaction
		"balance":        result.Balance.String(), // New balance
		"replayed":       replayed,                // Served from a prior execution
	}), "Deposit", nil)
	return result, nil
}

// Withdraw debits req.Amount from the account's wallet and appends a WITHDRAWAL
func (e *Engine) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	log := e.log.WithFields(logrus.Fields{
		"operation":       domain.OperationWithdraw, // Operation name
		"account_id":      req.AccountID,            // Debited account
		"amount":          req.Amount.String(),      // Withdrawal amount
		"idempotency_key": req.IdempotencyKey,       // Optional retry key
	})
	if req.AccountID == 0 {
		e.logOutcome(log, "Withdrawal", domain.ErrInvalidAccount)
		return nil, domain.ErrInvalidAccount
	}
	if err := validateAmount(req.Amount); err != nil {
		e.logOutcome(log, "Withdrawal", err)
		return nil, err
	}
	if err := validateText(req.Description, req.IdempotencyKey); err != nil {
		e.logOutcome(log, "Withdrawal", err)
		return nil, err
	}

	op := keyedOp{
		name:        domain.OperationWithdraw,
		caller:      req.AccountID,
		key:         req.IdempotencyKey,
		fingerprint: idempotency.Fingerprint(domain.OperationWithdraw, strconv.FormatUint(uint64(req.AccountID), 10), req.Amount.String()),
	}
	result, replayed, err := execute(ctx, e, op, func(u domain.Unit) (*WithdrawResult, *domain.Transaction, error) {
		wallet, err := u.Wallets().GetWallet(ctx, req.AccountID)
		if err != nil {
			return nil, nil, err
		}
		if !wallet.HasSufficientFunds(req.Amount) {
			return nil, nil, fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientFunds, wallet.Balance, req.Amount)
		}
		updated, err := u.Wallets().AdjustBalance(ctx, wallet.ID, req.Amount.Neg(), wallet.Version)
		if err != nil {
			return nil, nil, err
		}
		tx, err := u.Transactions().Append(ctx, &domain.Transaction{
			Type:            domain.TransactionTypeWithdrawal, // Money leaving the ledger
			Status:          domain.TransactionStatusCompleted,
			Amount:          req.Amount,
			FromWalletID:    &updated.ID, // Source only
			Description:     optional(req.Description),
			CallerAccountID: req.AccountID,
			IdempotencyKey:  optional(req.IdempotencyKey),
		})
		if err != nil {
			return nil, nil, err
		}
		return &WithdrawResult{
			AccountID:   req.AccountID,
			WalletID:    updated.ID,
			Balance:     updated.Balance,
			Transaction: *tx,
		}, tx, nil
	})
	if err != nil {
		e.logOutcome(log, "Withdrawal", err)
		return nil, err
	}
	result.Replayed = replayed
	e.logOutcome(log.WithFields(logrus.Fields{
		"transaction_id": result.Transaction.ID,
		"balance":        result.Balance.String(),
		"replayed":       replayed,
	}), "Withdrawal", nil)
	return result, nil
}

// Transfer moves req.Amount between two wallets in one unit. Wallets are
// mutated in ascending wallet id order whatever the transfer direction.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	log := e.log.WithFields(logrus.Fields{
		"operation":       domain.OperationTransfer, // Operation name
		"from_account_id": req.FromAccountID,        // Sender
		"to_account_id":   req.ToAccountID,          // Receiver
		"amount":          req.Amount.String(),      // Transfer amount
		"idempotency_key": req.IdempotencyKey,       // Optional retry key, scoped to the sender
	})
	if err := validateTransfer(req); err != nil {
		e.logOutcome(log, "Transfer", err)
		return nil, err
	}

	op := keyedOp{
		name:   domain.OperationTransfer,
		caller: req.FromAccountID,
		key:    req.IdempotencyKey,
		fingerprint: idempotency.Fingerprint(domain.OperationTransfer,
			strconv.FormatUint(uint64(req.FromAccountID), 10),
			strconv.FormatUint(uint64(req.ToAccountID), 10),
			req.Amount.String()),
	}
	result, replayed, err := execute(ctx, e, op, func(u domain.Unit) (*TransferResult, *domain.Transaction, error) {
		from, err := u.Wallets().GetWallet(ctx, req.FromAccountID)
		if err != nil {
			return nil, nil, fmt.Errorf("sender account %d: %w", req.FromAccountID, err)
		}
		to, err := u.Wallets().GetWallet(ctx, req.ToAccountID)
		if err != nil {
			return nil, nil, fmt.Errorf("recipient account %d: %w", req.ToAccountID, err)
		}
		if !from.HasSufficientFunds(req.Amount) {
			return nil, nil, fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientFunds, from.Balance, req.Amount)
		}

		// Lower wallet id first so opposite transfers never wait on each other in a cycle
		legs := []struct {
			wallet *domain.Wallet
			debit  bool
		}{{from, true}, {to, false}}
		if to.ID < from.ID {
			legs[0], legs[1] = legs[1], legs[0]
		}
		for _, leg := range legs {
			delta := req.Amount
			if leg.debit {
				delta = delta.Neg()
			}
			updated, err := u.Wallets().AdjustBalance(ctx, leg.wallet.ID, delta, leg.wallet.Version)
			if err != nil {
				return nil, nil, err
			}
			*leg.wallet = *updated
		}

		tx, err := u.Transactions().Append(ctx, &domain.Transaction{
			Type:            domain.TransactionTypeTransfer, // Wallet to wallet
			Status:          domain.TransactionStatusCompleted,
			Amount:          req.Amount,
			FromWalletID:    &from.ID, // Debited wallet
			ToWalletID:      &to.ID,   // Credited wallet
			Description:     optional(req.Description),
			CallerAccountID: req.FromAccountID,
			IdempotencyKey:  optional(req.IdempotencyKey),
		})
		if err != nil {
			return nil, nil, err
		}
		return &TransferResult{
			Transaction: *tx,
			FromBalance: from.Balance,
			ToBalance:   to.Balance,
		}, tx, nil
	})
	if err != nil {
		e.logOutcome(log, "Transfer", err)
		return nil, err
	}
	result.Replayed = replayed
	e.logOutcome(log.WithFields(logrus.Fields{
		"transaction_id": result.Transaction.ID,
		"from_balance":   result.FromBalance.String(),
		"to_balance":     result.ToBalance.String(),
		"replayed":       replayed,
	}), "Transfer", nil)
	return result, nil
}

func validateTransfer(req TransferRequest) error {
	if req.FromAccountID == 0 || req.ToAccountID == 0 {
		return domain.ErrInvalidAccount
	}
	if err := validateAmount(req.Amount); err != nil {
		return err
	}
	if req.FromAccountID == req.ToAccountID {
		return domain.ErrSameAccountTransfer
	}
	return validateText(req.Description, req.IdempotencyKey)
}

// OpenAccount creates the user and its empty wallet in one unit. The username
// is stored lowercase; user.ID and user.Wallet are filled on success.
func (e *Engine) OpenAccount(ctx context.Context, user *domain.User) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if err := domain.CheckLength("username", user.Username, domain.MaxUsernameLength); err != nil {
		return err
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	err := e.atomic(ctx, "open account", func(u domain.Unit) error {
		user.ID, user.Wallet = 0, domain.Wallet{}
		if err := u.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		wallet, err := u.Wallets().CreateWallet(ctx, user.ID)
		if err != nil {
			return err
		}
		user.Wallet = *wallet
		return nil
	})
	log := e.log.WithFields(logrus.Fields{
		"operation": "open_account", // Operation name
		"username":  user.Username,  // Requested username
	})
	if err != nil {
		e.logOutcome(log, "Account opening", err)
		return err
	}
	e.logOutcome(log.WithFields(logrus.Fields{
		"account_id": user.ID,        // New account
		"wallet_id":  user.Wallet.ID, // New wallet
	}), "Account opening", nil)
	return nil
}
