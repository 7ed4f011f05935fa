package repository

import (
	"context"
	"errors"
	"fmt"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) ports.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, publicID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListAll returns every user; role filtering happens in Go because roles are
// stored as a JSON array.
func (r *userRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	return users, err
}
