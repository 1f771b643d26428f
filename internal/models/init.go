package models

import (
	"strings"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const defaultSuperAdminPassword = "password123"

// InitDefaultSuperAdmin 初始化默认超级管理员账号（已有超级管理员时跳过）
func InitDefaultSuperAdmin(email, password string) error {
	var count int64
	if err := DB.Model(&User{}).Where("role = ?", constants.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "admin@bluboy.com"
	}
	if password == "" {
		password = defaultSuperAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := User{
		Email:        email,
		Name:         "Super Admin",
		Role:         constants.RoleSuperAdmin,
		Status:       constants.StatusActive,
		PasswordHash: string(hash),
	}
	if err := DB.Create(&user).Error; err != nil {
		return err
	}

	if password == defaultSuperAdminPassword {
		logger.Warnw("default_super_admin_created_with_default_password", "email", email)
		logger.Warnw("default_super_admin_password_change_required", "email", email)
	} else {
		logger.Warnw("default_super_admin_created", "email", email, "password_hidden", true)
	}
	return nil
}
