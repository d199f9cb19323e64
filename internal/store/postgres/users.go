package postgres

import (
	"context"
	"fmt"
	"strings"

	"monthlydata/internal/store"
	"monthlydata/models"
)

// CreateUser stores u with the named role, creating the role if it is missing.
func (s *Store) CreateUser(ctx context.Context, u *models.User, roleName string) error {
	db := s.db.WithContext(ctx)
	role := models.Role{Name: roleName}
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		return fmt.Errorf("ensure role %s: %w", roleName, err)
	}
	rid := role.ID
	u.RoleID = &rid
	u.Role = role
	u.Username = strings.TrimSpace(u.Username)
	if err := db.Omit("Role").Create(u).Error; err != nil {
		return fmt.Errorf("create user %s: %w", u.Username, translate(err))
	}
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, translate(err))
	}
	return &u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, translate(err))
	}
	return &u, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID uint, hash []byte) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("hashed_password", hash)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update password for %d: %w", userID, store.ErrNotFound)
	}
	return nil
}

// RoleName resolves the role name from RoleID; users without a role get "".
func (s *Store) RoleName(ctx context.Context, u *models.User) (string, error) {
	if u.RoleID == nil {
		return "", nil
	}
	var r models.Role
	if err := s.db.WithContext(ctx).First(&r, *u.RoleID).Error; err != nil {
		return "", fmt.Errorf("find role %d: %w", *u.RoleID, translate(err))
	}
	return r.Name, nil
}

func (s *Store) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	if err := s.db.WithContext(ctx).Create(rt).Error; err != nil {
		return fmt.Errorf("store refresh token: %w", translate(err))
	}
	return nil
}

func (s *Store) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&rt).Error; err != nil {
		return nil, fmt.Errorf("find refresh token: %w", translate(err))
	}
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("id = ?", id).Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("revoke refresh token %d: %w", id, store.ErrNotFound)
	}
	return nil
}
