// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package models

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Role is the canonical user role. Backend responses carry several
// historical spellings; NormalizeRole collapses them at the boundary, and
// nothing past the decode layer ever compares raw role strings.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// NormalizeRole maps any historical role spelling onto the canonical enum.
// Unknown spellings degrade to customer, never to a broader privilege.
func NormalizeRole(raw string) Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ADMIN", "ROLE_ADMIN", "ADMINISTRADOR":
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

// UserProfile is the canonical authenticated user shape.
type UserProfile struct {
	ID              int64  `json:"id"`
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            Role   `json:"role"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// userProfileWire mirrors every key spelling the backend has used for a
// user object across generations.
type userProfileWire struct {
	ID int64 `json:"id"`

	Name   string `json:"name"`
	Nombre string `json:"nombre"`

	Email  string `json:"email"`
	Correo string `json:"correo"`

	Role string `json:"role"`
	Rol  string `json:"rol"`

	Phone    string `json:"phone"`
	Telefono string `json:"telefono"`

	Address   string `json:"address"`
	Direccion string `json:"direccion"`

	ProfileImageURL string `json:"profileImageUrl"`
	ImagenPerfil    string `json:"imagenPerfil"`
}

// UnmarshalJSON decodes a user object in either naming generation and
// normalizes it into the canonical shape.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	var wire userProfileWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode user profile: %w", err)
	}

	*u = UserProfile{
		ID:              wire.ID,
		Name:            firstNonEmpty(wire.Name, wire.Nombre),
		Email:           firstNonEmpty(wire.Email, wire.Correo),
		Role:            NormalizeRole(firstNonEmpty(wire.Role, wire.Rol)),
		Phone:           firstNonEmpty(wire.Phone, wire.Telefono),
		Address:         firstNonEmpty(wire.Address, wire.Direccion),
		ProfileImageURL: firstNonEmpty(wire.ProfileImageURL, wire.ImagenPerfil),
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
