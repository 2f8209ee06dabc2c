package repository

import (
	"context"
	"errors"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository interface {
	// GetOrCreate lazily creates the user's wallet with the starting balance.
	GetOrCreate(ctx context.Context, userID string) (*domain.Wallet, error)
	Credit(ctx context.Context, userID string, amount int64, description, bookingPNR string) (*domain.Wallet, *domain.WalletTransaction, error)
	Debit(ctx context.Context, userID string, amount int64, description, bookingPNR string) (*domain.Wallet, *domain.WalletTransaction, error)
	// Transfer debits the sender and credits the recipient in one
	// transaction; a failed debit leaves both wallets untouched.
	Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) (*domain.Wallet, error)
	Transactions(ctx context.Context, userID string) ([]domain.WalletTransaction, error)
}

type PGWalletRepository struct {
	db              *pgxpool.Pool
	startingBalance int64
}

func NewWalletRepository(db *pgxpool.Pool, startingBalance int64) WalletRepository {
	return &PGWalletRepository{db: db, startingBalance: startingBalance}
}

func ensureWallet(ctx context.Context, tx pgx.Tx, userID string, startingBalance int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, startingBalance)
	return err
}

// debitWallet applies a conditional balance decrement. The balance guard is
// part of the UPDATE, so an overdraft attempt changes nothing.
func debitWallet(ctx context.Context, tx pgx.Tx, userID string, amount, startingBalance int64) (int64, error) {
	if err := ensureWallet(ctx, tx, userID, startingBalance); err != nil {
		return 0, err
	}
	var walletID int64
	err := tx.QueryRow(ctx, `UPDATE wallets SET balance = balance - $2, updated_at = now()
		WHERE user_id=$1 AND balance >= $2 RETURNING id`, userID, amount).Scan(&walletID)
	if errors.Is(err, pgx.ErrNoRows) {
		var available int64
		if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id=$1`, userID).Scan(&available); err != nil {
			return 0, err
		}
		return 0, &domain.InsufficientFundsError{Required: amount, Available: available}
	}
	return walletID, err
}

func creditWallet(ctx context.Context, tx pgx.Tx, userID string, amount, startingBalance int64) (int64, error) {
	if err := ensureWallet(ctx, tx, userID, startingBalance); err != nil {
		return 0, err
	}
	var walletID int64
	err := tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2, updated_at = now()
		WHERE user_id=$1 RETURNING id`, userID, amount).Scan(&walletID)
	return walletID, err
}

const walletColumns = `id, user_id, balance, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *PGWalletRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Wallet, error) {
	if _, err := r.db.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, r.startingBalance); err != nil {
		return nil, err
	}
	return scanWallet(r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id=$1`, userID))
}

func (r *PGWalletRepository) Credit(ctx context.Context, userID string, amount int64, description, bookingPNR string) (*domain.Wallet, *domain.WalletTransaction, error) {
	return r.apply(ctx, userID, amount, domain.TransactionCredit, description, bookingPNR)
}

func (r *PGWalletRepository) Debit(ctx context.Context, userID string, amount int64, description, bookingPNR string) (*domain.Wallet, *domain.WalletTransaction, error) {
	return r.apply(ctx, userID, amount, domain.TransactionDebit, description, bookingPNR)
}

func (r *PGWalletRepository) apply(ctx context.Context, userID string, amount int64, kind domain.TransactionKind, description, bookingPNR string) (*domain.Wallet, *domain.WalletTransaction, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var walletID int64
	if kind == domain.TransactionDebit {
		walletID, err = debitWallet(ctx, tx, userID, amount, r.startingBalance)
	} else {
		walletID, err = creditWallet(ctx, tx, userID, amount, r.startingBalance)
	}
	if err != nil {
		return nil, nil, err
	}

	entry := &domain.WalletTransaction{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		BookingPNR:  bookingPNR,
	}
	if err := tx.QueryRow(ctx, `INSERT INTO wallet_transactions (id, wallet_id, amount, kind, description, booking_pnr)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		entry.ID, entry.WalletID, entry.Amount, entry.Kind, entry.Description, entry.BookingPNR).Scan(&entry.CreatedAt); err != nil {
		return nil, nil, err
	}

	wallet, err := scanWallet(tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id=$1`, walletID))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return wallet, entry, nil
}

func (r *PGWalletRepository) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) (*domain.Wallet, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	fromID, err := debitWallet(ctx, tx, fromUserID, amount, r.startingBalance)
	if err != nil {
		return nil, err
	}
	toID, err := creditWallet(ctx, tx, toUserID, amount, r.startingBalance)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO wallet_transactions (id, wallet_id, amount, kind, description)
		VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10)`,
		uuid.NewString(), fromID, amount, domain.TransactionDebit, "Wallet transfer to user",
		uuid.NewString(), toID, amount, domain.TransactionCredit, "Wallet transfer from user"); err != nil {
		return nil, err
	}

	wallet, err := scanWallet(tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id=$1`, fromID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *PGWalletRepository) Transactions(ctx context.Context, userID string) ([]domain.WalletTransaction, error) {
	rows, err := r.db.Query(ctx, `SELECT t.id, t.wallet_id, t.amount, t.kind, t.description, COALESCE(t.booking_pnr, ''), t.created_at
		FROM wallet_transactions t JOIN wallets w ON w.id = t.wallet_id
		WHERE w.user_id=$1 ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.WalletTransaction, 0)
	for rows.Next() {
		var t domain.WalletTransaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Amount, &t.Kind, &t.Description, &t.BookingPNR, &t.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

var _ WalletRepository = (*PGWalletRepository)(nil)
