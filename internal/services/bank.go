package services

import (
	"context"

	"github.com/brikvest/apiserver/internal/payment"
	"github.com/brikvest/apiserver/types"
)

type bankStore interface {
	Create(ctx context.Context, account types.BankAccount) (types.BankAccount, error)
	Get(ctx context.Context, id int) (types.BankAccount, error)
	ListByUser(ctx context.Context, userID int) ([]types.BankAccount, error)
	Delete(ctx context.Context, id, userID int) error
}

// AddBankInput carries a new payout destination.
type AddBankInput struct {
	BankCode      string
	BankName      string
	AccountNumber string
}

// BankService manages user payout accounts. Account details are
// resolved against the payment provider before storage, and a transfer
// recipient is registered so payouts need no further provider setup.
type BankService struct {
	banks    bankStore
	payments *payment.Client
}

func NewBankService(banks bankStore, payments *payment.Client) *BankService {
	return &BankService{banks: banks, payments: payments}
}

// Add resolves and stores a payout account for the user.
func (s *BankService) Add(ctx context.Context, userID int, in AddBankInput) (types.BankAccount, error) {
	resolved, err := s.payments.ResolveAccount(ctx, in.AccountNumber, in.BankCode)
	if err != nil {
		return types.BankAccount{}, err
	}
	recipientCode, err := s.payments.CreateTransferRecipient(ctx, resolved.AccountName, in.AccountNumber, in.BankCode)
	if err != nil {
		return types.BankAccount{}, err
	}
	return s.banks.Create(ctx, types.BankAccount{
		UserID:        userID,
		BankCode:      in.BankCode,
		BankName:      in.BankName,
		AccountNumber: in.AccountNumber,
		AccountName:   resolved.AccountName,
		RecipientCode: recipientCode,
	})
}

func (s *BankService) List(ctx context.Context, userID int) ([]types.BankAccount, error) {
	return s.banks.ListByUser(ctx, userID)
}

// Remove deletes the account if it belongs to the user.
func (s *BankService) Remove(ctx context.Context, id, userID int) error {
	return s.banks.Delete(ctx, id, userID)
}
