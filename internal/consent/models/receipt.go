package models

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Operation names the consent action a receipt attests to.
type Operation string

const (
	OperationGrant    Operation = "grant"
	OperationRevoke   Operation = "revoke"
	OperationWithdraw Operation = "withdraw"
)

// Receipt is an immutable proof object issued alongside every grant, revoke
// and withdraw. The checksum binds the receipt fields together so a collaborator
// holding a copy can detect tampering without consulting the engine.
type Receipt struct {
	ReceiptID string
	ConsentID string
	Operation Operation
	Timestamp time.Time
	Checksum  string
}

// NewReceipt issues a receipt for an operation on a consent record.
func NewReceipt(consentID string, op Operation, at time.Time) *Receipt {
	receipt := &Receipt{
		ReceiptID: fmt.Sprintf("receipt_%s", uuid.New().String()),
		ConsentID: consentID,
		Operation: op,
		Timestamp: at,
	}
	receipt.Checksum = receipt.computeChecksum()
	return receipt
}

// Verify recomputes the checksum and reports whether the receipt is intact.
func (r Receipt) Verify() bool {
	return r.Checksum == r.computeChecksum()
}

func (r Receipt) computeChecksum() string {
	payload := fmt.Sprintf("%s|%s|%s|%s",
		r.ReceiptID,
		r.ConsentID,
		r.Operation,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
