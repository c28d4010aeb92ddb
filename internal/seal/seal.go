package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
	keySize = 32
)

// DerivePassword derives the symmetric encryption password from the wallet's
// personal-message signature over the encryption seed. Signing is
// deterministic, so the same wallet and seed always yield the same password;
// later proof requests can reuse it without re-deriving from user input.
func DerivePassword(key *ecdsa.PrivateKey, encryptionSeed string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(encryptionSeed)), key)
	if err != nil {
		return "", fmt.Errorf("sign encryption seed: %w", err)
	}
	return hexutil.Encode(sig), nil
}

// Encryptor encrypts the privacy payload with a password.
type Encryptor interface {
	Encrypt(data []byte, password string) ([]byte, error)
}

// AESGCM is the default Encryptor: AES-256-GCM with a scrypt-derived key.
// Output layout is salt || nonce || ciphertext.
type AESGCM struct{}

func (AESGCM) Encrypt(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Decrypt reverses Encrypt.
func (AESGCM) Decrypt(data []byte, password string) ([]byte, error) {
	if len(data) < saltSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	salt, rest := data[:saltSize], data[saltSize:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
