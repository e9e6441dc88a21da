package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Keypair holds the secret key of a signer.
type Keypair struct {
	private ed25519.PrivateKey
}

// Generate creates a fresh random keypair.
func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	return &Keypair{private: priv}, nil
}

// FromSecretKey builds a keypair from a 64-byte ed25519 secret key
// (seed followed by public key).
func FromSecretKey(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("identity: secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}
	priv := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(secret[ed25519.SeedSize:])) {
		return nil, fmt.Errorf("identity: secret key public half does not match seed")
	}
	return &Keypair{private: priv}, nil
}

// Identity returns the public identity of the keypair.
func (k *Keypair) Identity() Identity {
	var i Identity
	copy(i[:], k.private.Public().(ed25519.PublicKey))
	return i
}

// SecretKey returns a copy of the 64-byte secret key.
func (k *Keypair) SecretKey() []byte {
	b := make([]byte, len(k.private))
	copy(b, k.private)
	return b
}

// Sign signs msg with the secret key.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

// Verify reports whether sig is a valid signature of msg by i.
func Verify(i Identity, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(i[:]), msg, sig)
}

// LoadKeypair reads a keypair file: a JSON array of the 64 secret key bytes.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read keypair: %w", err)
	}
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("identity: decode keypair %s: %w", path, err)
	}
	secret := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("identity: keypair %s: byte %d out of range", path, i)
		}
		secret[i] = byte(v)
	}
	return FromSecretKey(secret)
}

// Save writes the keypair to path in the format LoadKeypair reads.
// The file is created with owner-only permissions.
func (k *Keypair) Save(path string) error {
	raw := make([]int, len(k.private))
	for i, b := range k.private {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("identity: encode keypair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("identity: create keypair dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
