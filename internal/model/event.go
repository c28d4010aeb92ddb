package model

import "math/big"

// JobCompleteEvent is a decoded JobComplete log from the data registry
// contract: the attestator finished the proof job for a file.
type JobCompleteEvent struct {
	Attestator  string
	JobID       *big.Int
	FileID      *big.Int
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
}
