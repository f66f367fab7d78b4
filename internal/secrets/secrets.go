// Package secrets encrypts credential strings for storage at rest.
//
// API keys in the persisted settings record go through Encrypt before they
// hit disk and Decrypt on load. The scheme is nacl secretbox with a random
// nonce prepended to the ciphertext, base64-encoded for JSON transport.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrDecrypt indicates the ciphertext is malformed or the key is wrong.
var ErrDecrypt = errors.New("decryption failed")

const nonceSize = 24

// DeriveKey turns an arbitrary passphrase into the fixed 32-byte secretbox key.
func DeriveKey(passphrase string) *[32]byte {
	sum := sha256.Sum256([]byte(passphrase))
	var key [32]byte
	copy(key[:], sum[:])
	return &key
}

// Encrypt seals plaintext with the key. An empty plaintext yields an empty
// string: there is nothing to protect and callers treat empty as unset.
func Encrypt(plaintext string, key *[32]byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. An empty ciphertext yields an
// empty string.
func Decrypt(ciphertext string, key *[32]byte) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(opened), nil
}
