package seal

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// EncryptWithRSA encrypts data with the node's RSA public key (PKCS#1 v1.5)
// and returns the ciphertext hex-encoded, the form the proof request expects.
func EncryptWithRSA(publicKeyPEM string, data []byte) (string, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return "", fmt.Errorf("no PEM block in public key")
	}

	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		// Some nodes publish PKIX-wrapped keys.
		parsed, pkixErr := x509.ParsePKIXPublicKey(block.Bytes)
		if pkixErr != nil {
			return "", fmt.Errorf("parse public key: %w", err)
		}
		rsaPub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return "", fmt.Errorf("public key is not RSA")
		}
		pub = rsaPub
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, data)
	if err != nil {
		return "", fmt.Errorf("rsa encrypt: %w", err)
	}
	return hex.EncodeToString(ciphertext), nil
}
