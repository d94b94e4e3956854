// Package wallet loads the static encrypted wallet descriptor distributed
// verbatim to workers inside each lease response.
package wallet

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

// Descriptor is the read-only bundle a candidate is tested against:
// salt, derivation iteration count, the encrypted master and private
// keys, and the uncompressed public key to match. Loaded once at startup.
type Descriptor struct {
	Salt                  []byte `json:"-"`
	DerivationIterations  int    `json:"derivationIterations"`
	EncryptedMasterKey    []byte `json:"-"`
	EncryptedPrivateKey   []byte `json:"-"`
	UncompressedPublicKey []byte `json:"-"`
}

// descriptorJSON is the on-disk shape: binary fields are base64-encoded,
// matching how the JSON wire format elsewhere in this system represents
// byte strings. It doubles as the wire shape sent to workers inside a
// lease response (see ToWire).
type descriptorJSON struct {
	Salt                  string `json:"salt"`
	DerivationIterations  int    `json:"derivationIterations"`
	EncryptedMasterKey    string `json:"encryptedMasterKey"`
	EncryptedPrivateKey   string `json:"encryptedPrivateKey"`
	UncompressedPublicKey string `json:"uncompressedPublicKey"`
}

// Wire is the base64-encoded representation of a Descriptor as delivered
// to workers inside a lease response body.
type Wire = descriptorJSON

// ToWire re-encodes d's binary fields back to the base64 wire shape.
func (d *Descriptor) ToWire() Wire {
	return descriptorJSON{
		Salt:                  base64.StdEncoding.EncodeToString(d.Salt),
		DerivationIterations:  d.DerivationIterations,
		EncryptedMasterKey:    base64.StdEncoding.EncodeToString(d.EncryptedMasterKey),
		EncryptedPrivateKey:   base64.StdEncoding.EncodeToString(d.EncryptedPrivateKey),
		UncompressedPublicKey: base64.StdEncoding.EncodeToString(d.UncompressedPublicKey),
	}
}

// Load reads and validates a Descriptor from a JSON file at path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet descriptor: %w", err)
	}

	var raw descriptorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse wallet descriptor: %w", err)
	}
	return FromWire(raw)
}

// FromWire decodes a base64 wire descriptor as delivered inside a lease
// response body into a Descriptor with raw binary fields.
func FromWire(raw Wire) (*Descriptor, error) {
	var err error
	d := &Descriptor{DerivationIterations: raw.DerivationIterations}

	if d.Salt, err = base64.StdEncoding.DecodeString(raw.Salt); err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	if d.EncryptedMasterKey, err = base64.StdEncoding.DecodeString(raw.EncryptedMasterKey); err != nil {
		return nil, fmt.Errorf("decode encrypted master key: %w", err)
	}
	if d.EncryptedPrivateKey, err = base64.StdEncoding.DecodeString(raw.EncryptedPrivateKey); err != nil {
		return nil, fmt.Errorf("decode encrypted private key: %w", err)
	}
	if d.UncompressedPublicKey, err = base64.StdEncoding.DecodeString(raw.UncompressedPublicKey); err != nil {
		return nil, fmt.Errorf("decode uncompressed public key: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the shape invariants from spec.md §3: both ciphertexts
// are 16-byte aligned, the public key is 65 bytes with a 0x04 prefix, and
// the iteration count is positive.
func (d *Descriptor) Validate() error {
	if d.DerivationIterations <= 0 {
		return fmt.Errorf("derivationIterations must be positive, got %d", d.DerivationIterations)
	}
	if len(d.EncryptedMasterKey)%16 != 0 {
		return fmt.Errorf("encryptedMasterKey length %d is not 16-byte aligned", len(d.EncryptedMasterKey))
	}
	if len(d.EncryptedPrivateKey)%16 != 0 {
		return fmt.Errorf("encryptedPrivateKey length %d is not 16-byte aligned", len(d.EncryptedPrivateKey))
	}
	if len(d.UncompressedPublicKey) != 65 || d.UncompressedPublicKey[0] != 0x04 {
		return fmt.Errorf("uncompressedPublicKey must be 65 bytes with a 0x04 prefix")
	}
	return nil
}
