package schema

import (
	"time"
)

const (
	// order status
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderActivated = "activated"
	OrderExpired   = "expired"
	OrderFailed    = "failed"

	// status transition reasons
	ReasonManualVerify   = "manual_verify"
	ReasonAutoDetected   = "auto_detected"
	ReasonMonitorTimeout = "monitoring_timeout"
	ReasonOrderExpired   = "order_expired"

	// payment method
	PayMethodQr     = "qr"
	PayMethodDirect = "direct"

	DefaultOrderExpiredRange = 30 * time.Minute
	DefaultPaidGraceWindow   = 10 * time.Minute
)

type Order struct {
	ID        string    `gorm:"primarykey;size:64" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserId           string `gorm:"index:idx_order_user" json:"userId"`
	RecipientAddress string `json:"recipientAddress"` // 20-byte hex
	Amount           string `json:"amount"`           // decimal string, human units
	TokenSymbol      string `json:"tokenSymbol"`
	ChainId          int64  `json:"chainId"`

	Status        string `gorm:"index:idx_order_status" json:"status"`
	StatusReason  string `json:"statusReason"`
	PaymentMethod string `json:"paymentMethod"` // "qr" or "direct"
	PaymentId     string `json:"paymentId"`     // settling tx hash

	ExpiresAt time.Time `json:"expiresAt"`
}

func (o *Order) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}

// CanVerify reports whether the order is in the only state verification may
// proceed from.
func (o *Order) CanVerify() bool {
	return o.Status == OrderPending && !o.IsExpired()
}

func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderPaid, OrderActivated, OrderExpired, OrderFailed:
		return true
	}
	return false
}
