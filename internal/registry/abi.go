package registry

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const dataRegistryABIJSON = `[
  {
    "inputs": [{"internalType": "string", "name": "url", "type": "string"}],
    "name": "getFileIdByUrl",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "url", "type": "string"}],
    "name": "addFile",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "fileId", "type": "uint256"}],
    "name": "requestProof",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "fileId", "type": "uint256"}],
    "name": "fileJobIds",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "jobId", "type": "uint256"}],
    "name": "getJob",
    "outputs": [
      {"internalType": "uint256", "name": "fileId", "type": "uint256"},
      {"internalType": "uint256", "name": "bidAmount", "type": "uint256"},
      {"internalType": "address", "name": "nodeAddress", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "nodeAddress", "type": "address"}],
    "name": "getNode",
    "outputs": [
      {"internalType": "string", "name": "url", "type": "string"},
      {"internalType": "string", "name": "publicKey", "type": "string"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "fileId", "type": "uint256"}],
    "name": "requestReward",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
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
	dataRegistryABI     abi.ABI
	dataRegistryABIOnce sync.Once
	dataRegistryABIErr  error
)

// DataRegistryABI returns the parsed data registry contract ABI.
func DataRegistryABI() (abi.ABI, error) {
	dataRegistryABIOnce.Do(func() {
		dataRegistryABI, dataRegistryABIErr = abi.JSON(strings.NewReader(dataRegistryABIJSON))
	})
	return dataRegistryABI, dataRegistryABIErr
}
