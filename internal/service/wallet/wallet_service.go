package wallet

import (
	"context"
	"errors"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/dsemenov/skyfare/internal/metrics"
	"github.com/dsemenov/skyfare/internal/repository"
)

type WalletUseCase interface {
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	AddFunds(ctx context.Context, userID string, amount int64) (*domain.Wallet, *domain.WalletTransaction, error)
	Withdraw(ctx context.Context, userID string, amount int64) (*domain.Wallet, *domain.WalletTransaction, error)
	Transfer(ctx context.Context, userID, recipientID string, amount int64) (*domain.Wallet, error)
	Transactions(ctx context.Context, userID string) ([]domain.WalletTransaction, error)
}

type WalletService struct {
	wallets repository.WalletRepository
}

func NewWalletService(wallets repository.WalletRepository) *WalletService {
	return &WalletService{wallets: wallets}
}

func (s *WalletService) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, userID)
}

func (s *WalletService) AddFunds(ctx context.Context, userID string, amount int64) (*domain.Wallet, *domain.WalletTransaction, error) {
	if amount <= 0 {
		return nil, nil, errors.New("amount must be positive")
	}
	wallet, entry, err := s.wallets.Credit(ctx, userID, amount, "Wallet top-up", "")
	if err != nil {
		return nil, nil, err
	}
	metrics.IncWalletOp(string(domain.TransactionCredit))
	return wallet, entry, nil
}

func (s *WalletService) Withdraw(ctx context.Context, userID string, amount int64) (*domain.Wallet, *domain.WalletTransaction, error) {
	if amount <= 0 {
		return nil, nil, errors.New("amount must be positive")
	}
	wallet, entry, err := s.wallets.Debit(ctx, userID, amount, "Wallet withdrawal", "")
	if err != nil {
		return nil, nil, err
	}
	metrics.IncWalletOp(string(domain.TransactionDebit))
	return wallet, entry, nil
}

func (s *WalletService) Transfer(ctx context.Context, userID, recipientID string, amount int64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if recipientID == "" {
		return nil, errors.New("recipient is required")
	}
	if recipientID == userID {
		return nil, errors.New("cannot transfer funds to yourself")
	}
	wallet, err := s.wallets.Transfer(ctx, userID, recipientID, amount)
	if err != nil {
		return nil, err
	}
	metrics.IncWalletOp(string(domain.TransactionDebit))
	metrics.IncWalletOp(string(domain.TransactionCredit))
	return wallet, nil
}

func (s *WalletService) Transactions(ctx context.Context, userID string) ([]domain.WalletTransaction, error) {
	return s.wallets.Transactions(ctx, userID)
}

var _ WalletUseCase = (*WalletService)(nil)
