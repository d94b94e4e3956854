// Package verify implements the fixed cryptographic chain from spec.md
// §4.7: passphrase -> derived key -> master key -> private key -> public
// key match. Every step after key derivation is wrapped so any cipher or
// arithmetic failure becomes a non-match, never a propagated error,
// matching the teacher's "skip invalid keys and keep scanning" idiom in
// its scanner inner loop.
package verify

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/luchenqun/lucky-dog/internal/wallet"
)

// Try runs the full verification pipeline for a single passphrase against
// descriptor d. It returns true iff the recovered private key's derived
// public key matches d.UncompressedPublicKey byte-exactly. Any cipher or
// arithmetic error anywhere in the chain yields false: the pipeline never
// returns an error to its caller.
func Try(passphrase string, d *wallet.Descriptor) bool {
	derivedKey, iv := deriveKey(passphrase, d.Salt, d.DerivationIterations)

	masterKey, ok := decryptCBCNoPadding(derivedKey, iv, d.EncryptedMasterKey)
	if !ok || len(masterKey) < 32 {
		return false
	}
	masterKey = masterKey[:32]

	innerIV := innerIV(d.UncompressedPublicKey)

	privateKey, ok := decryptCBCNoPadding(masterKey, innerIV, d.EncryptedPrivateKey)
	if !ok || len(privateKey) < 32 {
		return false
	}
	privateKey = privateKey[:32]

	pub, ok := derivePublicKey(privateKey)
	if !ok {
		return false
	}

	return constantTimeEqual(pub, d.UncompressedPublicKey)
}

// deriveKey computes buf0 = utf8(passphrase) || salt, then iterates
// buf(i) = SHA-512(buf(i-1)) for `iterations` rounds. The derived key is
// buf[0:32], the IV is buf[32:48].
func deriveKey(passphrase string, salt []byte, iterations int) (key, iv []byte) {
	buf := make([]byte, 0, len(passphrase)+len(salt))
	buf = append(buf, passphrase...)
	buf = append(buf, salt...)

	sum := sha512.Sum512(buf)
	for i := 1; i < iterations; i++ {
		sum = sha512.Sum512(sum[:])
	}
	out := sum[:]
	return out[0:32], out[32:48]
}

// innerIV computes SHA-256(SHA-256(pub))[0:16].
func innerIV(pub []byte) []byte {
	first := sha256.Sum256(pub)
	second := sha256.Sum256(first[:])
	return second[:16]
}

// decryptCBCNoPadding runs AES-256-CBC with padding disabled. Any
// length/key error is reported via ok=false rather than a panic or error
// return: padding is disabled deliberately so this must succeed on any
// 16-byte-aligned ciphertext regardless of content, per spec.md §4.7.
func decryptCBCNoPadding(key, iv, ciphertext []byte) (plaintext []byte, ok bool) {
	if len(key) != 32 || len(iv) != aes.BlockSize {
		return nil, false
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, false
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, false
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, true
}

// derivePublicKey validates privateKey as a secp256k1 scalar (0 < k < n)
// and computes its uncompressed public key (65 bytes, 0x04 prefix).
func derivePublicKey(privateKey []byte) ([]byte, bool) {
	if len(privateKey) != 32 {
		return nil, false
	}

	var keyArr [32]byte
	copy(keyArr[:], privateKey)

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetBytes(&keyArr); overflow != 0 {
		return nil, false
	}
	if scalar.IsZero() {
		return nil, false
	}

	var point secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&scalar, &point)
	point.ToAffine()
	point.X.Normalize()
	point.Y.Normalize()

	pub := make([]byte, 65)
	pub[0] = 0x04
	point.X.PutBytesUnchecked(pub[1:33])
	point.Y.PutBytesUnchecked(pub[33:65])
	return pub, true
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
