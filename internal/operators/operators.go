// Package operators manages the privileged accounts allowed to read dashboards.
package operators

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/crypto"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

type Operator struct {
	ID                uint      `gorm:"primaryKey"`
	Email             string    `gorm:"uniqueIndex;not null"`
	EncryptedPassword string    `gorm:"not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

var (
	ErrOperatorExists     = errors.New("operator already exists")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// bcrypt hash of "dummy", verified for unknown emails so that a login takes
// the same time whether or not the account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail retrieves an operator by email.
func FindByEmail(db *gorm.DB, email string) (*Operator, error) {
	var op Operator
	if err := db.Where("email = ?", normalizeEmail(email)).First(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &op, nil
}

// FindByID retrieves an operator by ID.
func FindByID(db *gorm.DB, id uint) (*Operator, error) {
	var op Operator
	if err := db.Where("id = ?", id).First(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &op, nil
}

// CreateOperator stores a new operator. It returns ErrOperatorExists if the
// email is already registered.
func CreateOperator(db *gorm.DB, logger *slog.Logger, email, password string) (*Operator, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}

	if _, err := FindByEmail(db, email); err == nil {
		return nil, ErrOperatorExists
	} else if !errors.Is(err, ErrOperatorNotFound) {
		return nil, err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	op := &Operator{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
	}
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(op).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	logger.Info("Operator created", slog.String("email", email))
	return op, nil
}

// ChangePassword replaces the password of an existing operator.
func ChangePassword(db *gorm.DB, logger *slog.Logger, email, password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	op, err := FindByEmail(db, email)
	if err != nil {
		return err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(op).Update("encrypted_password", string(hashedPassword)).Error
	})
}

// Authenticate checks credentials and returns the matching operator.
func Authenticate(db *gorm.DB, email, password string) (*Operator, error) {
	op, err := FindByEmail(db, email)
	if err != nil {
		crypto.VerifyPassword(dummyHash, password)
		if errors.Is(err, ErrOperatorNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.VerifyPassword(op.EncryptedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	return op, nil
}
