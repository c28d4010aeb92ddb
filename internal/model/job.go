package model

// MintJob is the payload of a mint task: the raw private data to anchor for
// one token.
type MintJob struct {
	TokenAddress string `json:"token_address"`
	FileName     string `json:"file_name"`
	PrivacyData  []byte `json:"privacy_data"`
}

// ResolveAttestatorJob asks the resolution worker to locate the JobComplete
// event for a minted record. BlockNumber is the mint transaction's block and
// anchors the lookback window; a zero value makes the job malformed.
type ResolveAttestatorJob struct {
	TokenAddress string `json:"token_address"`
	FileID       string `json:"file_id"`
	BlockNumber  uint64 `json:"block_number"`
}
