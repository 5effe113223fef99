package schema

import (
	"time"

	"gorm.io/datatypes"
)

// HashRecord is the hash ledger entry. TransactionHash carries a database
// uniqueness constraint; the insert-if-absent on it is the final authority for
// the at-most-one-use guarantee.
type HashRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	TransactionHash    string         `gorm:"unique;size:66" json:"transactionHash"` // 32-byte hex
	OrderId            string         `gorm:"index:idx_hash_order" json:"orderId"`
	UserId             string         `json:"userId"`
	IsVerified         bool           `json:"isVerified"`
	VerificationResult datatypes.JSON `json:"verificationResult"`
}

type TxSummary struct {
	Hash        string `json:"hash"`
	From        string `json:"from,omitempty"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Nonce       uint64 `json:"nonce"`
	BlockNumber uint64 `json:"blockNumber"`
}

type ReceiptSummary struct {
	Status        uint64 `json:"status"`
	BlockNumber   uint64 `json:"blockNumber"`
	GasUsed       uint64 `json:"gasUsed"`
	Confirmations uint64 `json:"confirmations"`
}

type VerificationDetails struct {
	Transaction *TxSummary      `json:"transaction,omitempty"`
	Receipt     *ReceiptSummary `json:"receipt,omitempty"`
	VerifiedAt  *time.Time      `json:"verifiedAt,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// VerificationResult is the structured verdict of one verification attempt.
// Errors carries failure codes; Details.Message the human-readable context.
type VerificationResult struct {
	IsValid         bool                `json:"isValid"`
	OrderId         string              `json:"orderId"`
	TransactionHash string              `json:"transactionHash"`
	Confirmations   uint64              `json:"confirmations"`
	Errors          []string            `json:"errors"`
	Details         VerificationDetails `json:"details"`
}

// BlockTx is the compact per-transaction form the detector scans; only the
// fields a candidate match needs, cheap to cache per block.
type BlockTx struct {
	Hash        string `json:"hash"`
	To          string `json:"to"`
	Value       string `json:"value"` // base-10 smallest units
	Selector    string `json:"selector,omitempty"`
	BlockNumber uint64 `json:"blockNumber"`
}

type DetectResult struct {
	Found           bool   `json:"found"`
	TransactionHash string `json:"transactionHash,omitempty"`
	BlockNumber     uint64 `json:"blockNumber,omitempty"`
	Confirmations   uint64 `json:"confirmations,omitempty"`
	TokenTransfer   bool   `json:"tokenTransfer,omitempty"` // candidate only, needs full verify
	Message         string `json:"message,omitempty"`
}
