// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/avaldera/comercia/internal/gateway"
	"github.com/avaldera/comercia/internal/models"
)

// UserService is the user-administration facade. Every operation here is
// admin-only on the backend; a customer token gets a 403, which reads
// absorb like any other failure.
type UserService struct {
	gw *gateway.Gateway
}

// List returns all user accounts. Failures yield an empty slice.
func (s *UserService) List(ctx context.Context) ([]models.UserProfile, error) {
	var users []models.UserProfile
	if err := s.gw.Get(ctx, "usuarios", &users); err != nil {
		if swallowRead(err, "usuarios") {
			return []models.UserProfile{}, nil
		}
		return nil, err
	}
	if users == nil {
		users = []models.UserProfile{}
	}
	return users, nil
}

// GetByID returns one account, or nil when absent or unreadable.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := s.gw.Get(ctx, "usuarios/"+strconv.FormatInt(id, 10), &user); err != nil {
		if swallowRead(err, "usuarios") {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Update replaces an account's profile fields. Write failures propagate.
func (s *UserService) Update(ctx context.Context, id int64, user *models.UserProfile) (*models.UserProfile, error) {
	if err := validate.Struct(user); err != nil {
		return nil, fmt.Errorf("validate user: %w", err)
	}
	var updated models.UserProfile
	if err := s.gw.Put(ctx, "usuarios/"+strconv.FormatInt(id, 10), user, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetRole changes an account's role. The value sent is canonical; the
// backend accepts either spelling generation.
func (s *UserService) SetRole(ctx context.Context, id int64, role models.Role) (*models.UserProfile, error) {
	body := map[string]models.Role{"role": role}
	var updated models.UserProfile
	if err := s.gw.Patch(ctx, "usuarios/"+strconv.FormatInt(id, 10)+"/rol", body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an account. Write failures propagate.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.gw.Delete(ctx, "usuarios/"+strconv.FormatInt(id, 10), nil)
}
