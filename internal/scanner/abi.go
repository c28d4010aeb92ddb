package scanner

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const jobCompleteABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "attestator", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "jobId", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "fileId", "type": "uint256"}
    ],
    "name": "JobComplete",
    "type": "event"
  }
]`

var (
	jobCompleteABI     abi.ABI
	jobCompleteABIOnce sync.Once
	jobCompleteABIErr  error
)

func jobCompleteEventABI() (abi.ABI, error) {
	jobCompleteABIOnce.Do(func() {
		jobCompleteABI, jobCompleteABIErr = abi.JSON(strings.NewReader(jobCompleteABIJSON))
	})
	return jobCompleteABI, jobCompleteABIErr
}

// JobCompleteTopic returns the topic0 hash of the JobComplete event.
func JobCompleteTopic() (common.Hash, error) {
	parsed, err := jobCompleteEventABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["JobComplete"].ID, nil
}
