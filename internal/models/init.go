package models

import (
	"strings"

	"github.com/nexpag/nexpag/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaultOperator creates the default back-office account when
// no operator exists yet.
func InitDefaultOperator(username, password string) error {
	var count int64
	DB.Model(&Operator{}).Count(&count)

	// Make sure the default account keeps super rights across upgrades.
	if count > 0 {
		if err := DB.Model(&Operator{}).Where("username = ?", "admin").Update("is_super", true).Error; err != nil {
			logger.Warnw("ensure_default_operator_super_failed", "error", err)
		}
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	operator := Operator{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      strings.EqualFold(strings.TrimSpace(username), "admin"),
	}

	if err := DB.Create(&operator).Error; err != nil {
		return err
	}

	if password == "admin123" {
		logger.Warnw("default_operator_created_with_default_password", "username", username)
		logger.Warnw("default_operator_password_change_required", "username", username)
	} else {
		logger.Warnw("default_operator_created", "username", username, "password_hidden", true)
	}

	return nil
}
