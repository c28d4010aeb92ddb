package seal

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestDerivePasswordDeterministic(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	first, err := DerivePassword(key, "encryption-seed")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := DerivePassword(key, "encryption-seed")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first != second {
		t.Fatalf("password not deterministic: %s != %s", first, second)
	}

	other, err := DerivePassword(key, "another-seed")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if other == first {
		t.Fatalf("different seeds produced the same password")
	}
}

func TestAESGCMRoundTrip(t *testing.T) {
	enc := AESGCM{}
	plain := []byte("privacy payload")

	sealed, err := enc.Encrypt(plain, "password")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Fatalf("ciphertext contains plaintext")
	}

	opened, err := enc.Decrypt(sealed, "password")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("round trip mismatch: %q != %q", opened, plain)
	}

	if _, err := enc.Decrypt(sealed, "wrong"); err == nil {
		t.Fatalf("expected error for wrong password")
	}
}

func TestEncryptWithRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	pubPEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey),
	}))

	encHex, err := EncryptWithRSA(pubPEM, []byte("symmetric-password"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	ciphertext, err := hex.DecodeString(encHex)
	if err != nil {
		t.Fatalf("ciphertext not hex: %v", err)
	}
	plain, err := rsa.DecryptPKCS1v15(nil, key, ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(plain) != "symmetric-password" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestEncryptWithRSAInvalidKey(t *testing.T) {
	if _, err := EncryptWithRSA("not a pem", []byte("x")); err == nil {
		t.Fatalf("expected error for invalid key")
	}
}
