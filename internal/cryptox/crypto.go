// Package cryptox holds the cryptographic primitives of the vault: the
// deterministic store-key derivation, the master password hasher and the
// AES-GCM helpers used for encrypted values at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
)

// keySalt is the fixed, application-level salt mixed into DeriveKey.
var keySalt = []byte("vault-encryption-key-salt")

// KeySize is the length in bytes of keys returned by DeriveKey.
const KeySize = sha256.Size

// DeriveKey turns a master password into the 32-byte symmetric key used to
// open the encrypted store: SHA-256(password || keySalt).
//
// The derivation is deterministic on purpose, the same password always opens
// the same vault. It performs no validation; password policy is enforced by
// the authenticator before a vault is ever created.
func DeriveKey(password []byte) []byte {
	h := sha256.New()
	h.Write(password)
	h.Write(keySalt)
	return h.Sum(nil)
}

// EncryptEntry serializes the given value to JSON and encrypts it using AES-GCM.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A new random
// 12-byte nonce is generated for each call; ciphertext and nonce are returned
// separately.
func EncryptEntry(entry any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// DecryptEntry decrypts ciphertext produced by EncryptEntry and unmarshals the
// JSON plaintext into v. A wrong key fails authentication and returns an
// error without touching v.
func DecryptEntry(ciphertext, nonce, key []byte, v any) error {
	aesgcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
