// Package remotegw is the typed HTTP client for the remote
// catalog/identity service. It shapes requests and decodes responses;
// it holds no business logic and never retries — retry policy belongs
// to the sync orchestrator.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package remotegw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Gateway talks JSON over HTTP to the catalog service.
type Gateway struct {
	BaseURL string
	Token   TokenSource
	HTTP    *http.Client
	logger  *slog.Logger
}

// NewGateway creates a gateway for the given base URL. Token may be
// nil when the environment does not require authentication.
func NewGateway(baseURL string, token TokenSource, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// FetchMerchants returns the full remote merchant set.
func (g *Gateway) FetchMerchants(ctx context.Context) ([]MerchantDTO, error) {
	var out []MerchantDTO
	if err := g.do(ctx, "fetch merchants", http.MethodGet, "/merchants", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchListings returns the full remote listing set.
func (g *Gateway) FetchListings(ctx context.Context) ([]ListingDTO, error) {
	var out []ListingDTO
	if err := g.do(ctx, "fetch listings", http.MethodGet, "/listings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchListingsByOwner returns the remote listings of one merchant.
func (g *Gateway) FetchListingsByOwner(ctx context.Context, remoteOwnerID int64) ([]ListingDTO, error) {
	var out []ListingDTO
	path := fmt.Sprintf("/listings?ownerId=%d", remoteOwnerID)
	if err := g.do(ctx, "fetch listings by owner", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMerchant registers a new remote merchant. A duplicate surfaces
// as ErrConflict.
func (g *Gateway) CreateMerchant(ctx context.Context, dto MerchantDTO) (*MerchantDTO, error) {
	var out MerchantDTO
	if err := g.do(ctx, "create merchant", http.MethodPost, "/merchants", dto, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMerchant replaces the remote merchant identified by the REMOTE
// id. Callers must resolve that id by email immediately before the
// write (see FindMerchantByEmail); a locally cached remote id may
// belong to a different seller.
func (g *Gateway) UpdateMerchant(ctx context.Context, remoteID int64, patch MerchantPatch) (*MerchantDTO, error) {
	var out MerchantDTO
	path := fmt.Sprintf("/merchants/%d", remoteID)
	if err := g.do(ctx, "update merchant", http.MethodPut, path, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateListing publishes a new remote listing.
func (g *Gateway) CreateListing(ctx context.Context, dto ListingDTO) (*ListingDTO, error) {
	var out ListingDTO
	if err := g.do(ctx, "create listing", http.MethodPost, "/listings", dto, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindMerchantByEmail looks up the authoritative remote record for an
// email. Returns (nil, nil) when no remote merchant matches.
func (g *Gateway) FindMerchantByEmail(ctx context.Context, email string) (*MerchantDTO, error) {
	var out []MerchantDTO
	path := "/merchants?email=" + url.QueryEscape(email)
	if err := g.do(ctx, "find merchant by email", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (g *Gateway) do(ctx context.Context, op, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.Token != nil {
		token, err := g.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get token for %s: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(resp.Body)
		return &TransientError{Op: op, Err: fmt.Errorf("server returned status %d: %s", resp.StatusCode, respBody)}
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
