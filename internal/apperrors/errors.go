package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrBadCredentials  = errors.New("bad credentials")
	ErrNoLinkedAccount = errors.New("no payout account linked")

	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyProcessed  = errors.New("request already processed")

	ErrDepositNotFound    = errors.New("deposit not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrAmountBelowMinimum = errors.New("amount is below the allowed minimum")

	ErrPackageNotFound     = errors.New("investment package not found")
	ErrPackageInUse        = errors.New("investment package has open positions")
	ErrPackageInactive     = errors.New("investment package is not active")
	ErrAmountOutOfRange    = errors.New("amount is out of the package range")
	ErrAlreadyPurchased    = errors.New("short-term package already purchased")
	ErrMissingPrerequisite = errors.New("active long-term position required")
	ErrInvestmentNotFound  = errors.New("investment not found")
)
