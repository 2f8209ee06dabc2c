package domain

import "time"

type TransactionKind string

const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

type Wallet struct {
	ID        int64
	UserID    string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WalletTransaction is one entry of the append-only wallet ledger.
type WalletTransaction struct {
	ID          string
	WalletID    int64
	Amount      int64
	Kind        TransactionKind
	Description string
	BookingPNR  string
	CreatedAt   time.Time
}
