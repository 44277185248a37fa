package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/identity"
	"github.com/taic/backend/internal/domain/shared"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Email             string              `gorm:"type:varchar(320);not null;uniqueIndex"`
	PasswordHash      string              `gorm:"type:varchar(255);not null"`
	DisplayName       string              `gorm:"type:varchar(200)"`
	AvatarURL         string              `gorm:"type:varchar(500)"`
	Role              identity.UserRole   `gorm:"type:varchar(20);not null;default:'shopper';index"`
	Status            identity.UserStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	MerchantID        *uuid.UUID          `gorm:"type:uuid;index"`
	LastLoginAt       *time.Time          `gorm:"index"`
	LastLoginIP       string              `gorm:"type:varchar(45)"`
	FailedAttempts    int                 `gorm:"not null;default:0"`
	LockedUntil       *time.Time
	PasswordChangedAt *time.Time
	Version           int `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		DisplayName:       m.DisplayName,
		AvatarURL:         m.AvatarURL,
		Role:              m.Role,
		Status:            m.Status,
		MerchantID:        m.MerchantID,
		LastLoginAt:       m.LastLoginAt,
		LastLoginIP:       m.LastLoginIP,
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
		PasswordChangedAt: m.PasswordChangedAt,
	}
}

// UserModelFromDomain converts a domain User entity to the persistence model.
func UserModelFromDomain(user *identity.User) *UserModel {
	return &UserModel{
		ID:                user.ID,
		Email:             user.Email,
		PasswordHash:      user.PasswordHash,
		DisplayName:       user.DisplayName,
		AvatarURL:         user.AvatarURL,
		Role:              user.Role,
		Status:            user.Status,
		MerchantID:        user.MerchantID,
		LastLoginAt:       user.LastLoginAt,
		LastLoginIP:       user.LastLoginIP,
		FailedAttempts:    user.FailedAttempts,
		LockedUntil:       user.LockedUntil,
		PasswordChangedAt: user.PasswordChangedAt,
		Version:           user.Version,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}
}
