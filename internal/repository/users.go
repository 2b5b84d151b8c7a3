package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clawcoach/clawcoach/internal/types"
)

// userModel maps to the users table.
type userModel struct {
	ID            string `gorm:"primaryKey"`
	WalletAddress string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userModel) TableName() string {
	return "users"
}

// UserRepo accesses user records.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo returns a UserRepo.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByWallet fetches a user by wallet address (case-insensitive).
func (r *UserRepo) GetByWallet(ctx context.Context, wallet string) (*types.User, error) {
	var record userModel
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", strings.ToLower(wallet)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user := userFromModel(record)
	return &user, nil
}

// Sync finds or creates the user row for a wallet address.
func (r *UserRepo) Sync(ctx context.Context, wallet string) (*types.User, error) {
	record := userModel{
		ID:            uuid.NewString(),
		WalletAddress: strings.ToLower(wallet),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_address"}},
			DoNothing: true,
		}).
		Create(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	return r.GetByWallet(ctx, wallet)
}

func userFromModel(m userModel) types.User {
	return types.User{
		ID:            m.ID,
		WalletAddress: m.WalletAddress,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
