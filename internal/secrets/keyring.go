package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// envelope is the stored form of an encrypted secret: which master key
// sealed it, plus nonce and ciphertext. Keeping the key id alongside
// the ciphertext allows key rotation without re-encrypting everything
// up front.
type envelope struct {
	KeyID      string `json:"key_id"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Keyring seals and opens secrets (API keys, custom headers) before
// they touch the database. New secrets always use the current key; old
// envelopes stay readable as long as their key remains configured.
type Keyring struct {
	currentID string
	keys      map[string][]byte
}

func NewKeyring(currentID string, keys map[string][]byte) (*Keyring, error) {
	if currentID == "" {
		return nil, fmt.Errorf("current key id is empty")
	}
	if _, ok := keys[currentID]; !ok {
		return nil, fmt.Errorf("current key id %q not found", currentID)
	}
	cp := make(map[string][]byte, len(keys))
	for id, key := range keys {
		if len(key) != 32 {
			return nil, fmt.Errorf("master key %q must be 32 bytes", id)
		}
		buf := make([]byte, len(key))
		copy(buf, key)
		cp[id] = buf
	}
	return &Keyring{currentID: currentID, keys: cp}, nil
}

func aead(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal encrypts value and returns the JSON envelope for storage.
func (k *Keyring) Seal(value string) (string, error) {
	gcm, err := aead(k.keys[k.currentID])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	env := envelope{
		KeyID:      k.currentID,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, []byte(value), nil)),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(raw), nil
}

// Open decrypts a stored JSON envelope with whichever key sealed it.
func (k *Keyring) Open(raw string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", fmt.Errorf("unmarshal envelope: %w", err)
	}
	key, ok := k.keys[env.KeyID]
	if !ok {
		return "", fmt.Errorf("unknown key id %q", env.KeyID)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	gcm, err := aead(key)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Reseal re-encrypts an envelope under the current key, for rotation.
func (k *Keyring) Reseal(raw string) (string, error) {
	plain, err := k.Open(raw)
	if err != nil {
		return "", err
	}
	return k.Seal(plain)
}
