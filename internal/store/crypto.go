package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var errCipherText = errors.New("store: malformed ciphertext")

// columnCipher seals individual column values with AES-256-GCM and derives
// deterministic lookup digests with HMAC-SHA256. Both keys come from the
// configured storage key via HKDF, so rotating the key invalidates the file.
type columnCipher struct {
	aead   cipher.AEAD
	macKey []byte
}

func newColumnCipher(key string) (*columnCipher, error) {
	if key == "" {
		return nil, errors.New("store: encrypted backend requires a storage key")
	}

	aesKey, err := deriveKey(key, "pesotrack/column-aes")
	if err != nil {
		return nil, err
	}
	macKey, err := deriveKey(key, "pesotrack/column-mac")
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("store: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("store: init gcm: %w", err)
	}
	return &columnCipher{aead: aead, macKey: macKey}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("store: derive key: %w", err)
	}
	return key, nil
}

func (c *columnCipher) seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("store: nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (c *columnCipher) open(sealed string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errCipherText
	}
	if len(raw) < c.aead.NonceSize() {
		return "", errCipherText
	}
	nonce, ct := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", errCipherText
	}
	return string(plain), nil
}

func (c *columnCipher) digest(value string) string {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
