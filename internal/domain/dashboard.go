package domain

// Stats summarises dashboard counters. Verifications and StorageUsed are
// derived from the document count, not measured.
type Stats struct {
	RegisteredDIDs      int    `json:"registeredDids"`
	NotarizedDocuments  int    `json:"notarizedDocuments"`
	Verifications       int    `json:"verifications"`
	StorageUsed         string `json:"storageUsed"`
	BlockchainConnected bool   `json:"blockchainConnected"`
}

// Chain availability states.
const (
	ChainReady       = "ready"
	ChainUnavailable = "unavailable"
)

// ChainStatus reports whether the notarization CLI can be invoked.
type ChainStatus struct {
	CLIAvailable bool   `json:"cliAvailable"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}
