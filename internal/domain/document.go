package domain

import "encoding/hex"

// Document categories accepted for notarization.
const (
	CategoryUniversityCredential = "University Credential"
	CategorySupplyChainEvent     = "Supply Chain Event"
	CategoryMedicalRecord        = "Medical Record"
	CategoryLegalDocument        = "Legal Document"
	CategoryIntellectualProperty = "Intellectual Property"
	CategoryOther                = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []string{
	CategoryUniversityCredential,
	CategorySupplyChainEvent,
	CategoryMedicalRecord,
	CategoryLegalDocument,
	CategoryIntellectualProperty,
	CategoryOther,
}

// Document is a notarized proof of a document's content hash.
type Document struct {
	ID                  int64  `json:"id"`
	Hash                string `json:"hash"`
	FileName            string `json:"fileName"`
	Category            string `json:"category"`
	Timestamp           int64  `json:"timestamp"`
	CreatedAt           int64  `json:"createdAt"`
	BlockchainTxHash    string `json:"blockchainTxHash,omitempty"`
	BlockchainTimestamp string `json:"blockchainTimestamp,omitempty"`
	OnChain             bool   `json:"onChain,omitempty"`
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidDocumentHash reports whether h is a hex encoded SHA-256 digest.
func ValidDocumentHash(h string) bool {
	if len(h) != 64 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}
