// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package remotegw

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexID is an integer identifier tolerant of the remote service's
// representations: JSON number, numeric string, or null. Non-numeric
// strings normalize to absent rather than failing the decode, so one
// sloppy field never poisons a whole batch.
type FlexID struct {
	Value int64
	Valid bool
}

// NewFlexID returns a present FlexID.
func NewFlexID(v int64) FlexID { return FlexID{Value: v, Valid: true} }

// Int64 returns the value and whether it is present.
func (f FlexID) Int64() (int64, bool) { return f.Value, f.Valid }

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = FlexID{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			*f = FlexID{Value: v, Valid: true}
		}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		// Non-integer number or other junk degrades to absent.
		return nil
	}
	*f = FlexID{Value: v, Valid: true}
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// MerchantDTO is the remote representation of a seller. The remote
// identifier is unrelated to the local account id for the same logical
// seller; email is the stable correlation key.
type MerchantDTO struct {
	ID        FlexID  `json:"id"`
	Email     string  `json:"email"`
	StoreName string  `json:"name"`
	Phone     string  `json:"phone,omitempty"`
	Address   string  `json:"address,omitempty"`
	ImageURL  *string `json:"imageUrl,omitempty"`
}

// MerchantPatch carries the fields of a remote merchant update.
type MerchantPatch struct {
	StoreName string  `json:"name,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Address   string  `json:"address,omitempty"`
	ImageURL  *string `json:"imageUrl,omitempty"`
}

// ListingDTO is the remote representation of a sellable item. OwnerID
// refers to the REMOTE merchant id and must be re-mapped to the local
// account id before persisting.
type ListingDTO struct {
	ID          FlexID   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	OwnerID     FlexID   `json:"ownerId"`
	Producer    string   `json:"producer,omitempty"`
	Images      []string `json:"images"`
	Price       float64  `json:"price"`
	Location    string   `json:"location,omitempty"`
}
