package domain

import (
	"regexp"
	"strings"
)

// DIDStatusActive is the status assigned to freshly registered identifiers.
const DIDStatusActive = "active"

var didPattern = regexp.MustCompile(`^did:[a-z0-9]+:[A-Za-z0-9._:%-]+$`)

// DID is a decentralized identifier bound to a wallet address.
type DID struct {
	ID               int64  `json:"id"`
	DID              string `json:"did"`
	WalletAddress    string `json:"walletAddress"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"createdAt"`
	BlockchainTxHash string `json:"blockchainTxHash,omitempty"`
	BindingTxHash    string `json:"bindingTxHash,omitempty"`
	OnChain          bool   `json:"onChain,omitempty"`
}

// ValidDID reports whether value has the did:method:identifier shape.
func ValidDID(value string) bool {
	return didPattern.MatchString(strings.TrimSpace(value))
}
