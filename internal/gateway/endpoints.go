// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package gateway

import "strings"

// endpointPrefixes maps the first segment of a logical endpoint to its
// physical path prefix. The backend's route prefixes changed across project
// generations; this table isolates every caller from that churn. Unmapped
// segments fall back to the gateway's default namespace.
var endpointPrefixes = map[string]string{
	"auth":      "/api/auth",
	"productos": "/api/productos",
	"pedidos":   "/api/pedidos",
	"usuarios":  "/api/usuarios",
	"carrito":   "/api/carrito",
}

// resolveEndpoint maps a logical endpoint to a physical backend path.
// The match is on the first path segment; the remainder is carried over
// verbatim. Logical endpoints never start with a slash.
func (g *Gateway) resolveEndpoint(logical string) string {
	logical = strings.TrimPrefix(logical, "/")

	segment := logical
	rest := ""
	if idx := strings.Index(logical, "/"); idx >= 0 {
		segment = logical[:idx]
		rest = logical[idx:]
	}

	if prefix, ok := endpointPrefixes[segment]; ok {
		return prefix + rest
	}

	return g.namespace + "/" + logical
}
