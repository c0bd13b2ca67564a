package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// StorageType tells where a product's deliverable lives.
type StorageType string

const (
	StorageExternalURL StorageType = "ExternalUrl"
	StorageLocalFile   StorageType = "LocalFile"
)

// ProductAsset is the deliverable attached to a digital product.
type ProductAsset struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	StorageType    StorageType
	ExternalURL    string
	LocalPath      string
	Instructions   string
	SupportContact string
}

// DownloadToken is a short-lived single-use grant for one product of one paid order.
type DownloadToken struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	Token     string // unique
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// Expired reports whether the grant is past its expiry at now.
func (t *DownloadToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// AccessGrant is the answer to a purchase-access request. Token is empty
// while the order is not ready for delivery.
type AccessGrant struct {
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	OrderStatus    OrderStatus
	Ready          bool
	Message        string
	Instructions   string
	SupportContact string
	Token          string
	DownloadURL    string
	ExpiresAt      time.Time
}
