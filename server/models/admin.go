package models

import (
	"context"
	"strings"

	"github.com/Daskott/kavach/server/auth"
	"github.com/google/uuid"
)

type Admin struct {
	BaseModel
	Email        string `json:"email" gorm:"not null;uniqueIndex"`
	PasswordHash string `json:"-" gorm:"not null"`
	IsActive     bool   `json:"isActive" gorm:"not null;default:true"`
}

func CreateAdmin(ctx context.Context, email, password string) (*Admin, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := Admin{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, err
	}

	return &admin, nil
}

func FindActiveAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	admin := Admin{}
	err := db.WithContext(ctx).
		First(&admin, "email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).Error
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

func FindActiveAdmin(ctx context.Context, id uuid.UUID) (*Admin, error) {
	admin := Admin{}
	err := db.WithContext(ctx).First(&admin, "id = ? AND is_active = ?", id, true).Error
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

func (admin *Admin) CheckPassword(password string) bool {
	return auth.CheckPasswordHash(password, admin.PasswordHash)
}
