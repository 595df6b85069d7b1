// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"fmt"
	"time"
)

// Account roles. An account is either a buyer (CLIENT) or a seller
// (MERCHANT); seller accounts own a Merchant row with the same id.
const (
	RoleClient   = "CLIENT"
	RoleMerchant = "MERCHANT"
)

// Listings carry between 1 and 10 image references.
const (
	MinListingImages = 1
	MaxListingImages = 10
)

// Account is an authenticated identity. The id is assigned locally by
// the store (AUTOINCREMENT) and is authoritative for local relations.
type Account struct {
	ID               int64
	FirstName        string
	LastName         string
	Email            string // unique, case-sensitive
	PasswordHash     string
	Role             string
	ImagePath        *string
	EmailVerified    bool
	VerificationCode *string
	CreatedAt        time.Time
}

// Merchant is the selling profile of an Account. Its id equals the
// owning Account's id (shared key, not an independent sequence); the
// row cannot outlive the account.
type Merchant struct {
	ID        int64 // equals Account.ID
	Phone     string
	Address   string
	StoreName string
	ImagePath *string
}

// Listing is a sellable item. OwnerID is nil for unowned "public" seed
// items. Producer is the display name of the seller, denormalized from
// the owning merchant's storefront name.
type Listing struct {
	ID          int64
	Name        string
	Description string
	Category    string
	OwnerID     *int64
	Producer    string
	Images      []string
	Price       float64
	Location    string
}

// Validate checks the listing invariants enforced on every write.
func (l *Listing) Validate() error {
	if n := len(l.Images); n < MinListingImages || n > MaxListingImages {
		return fmt.Errorf("listing %d: image count %d outside [%d,%d]", l.ID, n, MinListingImages, MaxListingImages)
	}
	if l.Price < 0 {
		return fmt.Errorf("listing %d: negative price %v", l.ID, l.Price)
	}
	return nil
}

// Bookmark marks a listing as a favorite of an account. At most one
// row exists per (account, listing) pair.
type Bookmark struct {
	AccountID int64
	ListingID int64
}
