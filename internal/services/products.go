// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/avaldera/comercia/internal/gateway"
	"github.com/avaldera/comercia/internal/models"
)

// ProductService is the catalog facade.
type ProductService struct {
	gw *gateway.Gateway
}

// List returns the full catalog. Failures yield an empty slice.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.gw.Get(ctx, "productos", &products); err != nil {
		if swallowRead(err, "productos") {
			return []models.Product{}, nil
		}
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetByID returns one product, or nil when it does not exist or cannot
// be fetched.
func (s *ProductService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.gw.Get(ctx, "productos/"+strconv.FormatInt(id, 10), &product); err != nil {
		if swallowRead(err, "productos") {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// Search returns catalog entries whose name or description contains the
// query, case-insensitively. The filter runs client-side over List, so it
// inherits the same empty-on-failure behavior.
func (s *ProductService) Search(ctx context.Context, query string) ([]models.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return products, nil
	}

	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// ByCategory returns catalog entries matching the category value in any
// of its historical representations.
func (s *ProductService) ByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.MatchesCategory(category) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Featured returns the products flagged for the storefront landing page.
func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	featured := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Featured {
			featured = append(featured, p)
		}
	}
	return featured, nil
}

// Create adds a catalog entry. Write failures propagate.
func (s *ProductService) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := validate.Struct(product); err != nil {
		return nil, fmt.Errorf("validate product: %w", err)
	}
	var created models.Product
	if err := s.gw.Post(ctx, "productos", product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces a catalog entry. Write failures propagate.
func (s *ProductService) Update(ctx context.Context, id int64, product *models.Product) (*models.Product, error) {
	if err := validate.Struct(product); err != nil {
		return nil, fmt.Errorf("validate product: %w", err)
	}
	var updated models.Product
	if err := s.gw.Put(ctx, "productos/"+strconv.FormatInt(id, 10), product, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a catalog entry. Write failures propagate.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.gw.Delete(ctx, "productos/"+strconv.FormatInt(id, 10), nil)
}
