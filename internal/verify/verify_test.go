package verify

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/luchenqun/lucky-dog/internal/wallet"
)

// encryptCBCNoPadding is the test-side mirror of decryptCBCNoPadding, used
// to build fixtures whose plaintext is known in advance.
func encryptCBCNoPadding(t *testing.T, key, iv, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out
}

// buildDescriptor constructs a wallet.Descriptor whose encrypted payloads
// decrypt correctly for the given passphrase, by running the same KDF/AES
// chain Try uses, in reverse (encrypt instead of decrypt).
func buildDescriptor(t *testing.T, passphrase string, privateKey []byte) *wallet.Descriptor {
	t.Helper()

	var keyArr [32]byte
	copy(keyArr[:], privateKey)
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetBytes(&keyArr); overflow != 0 || scalar.IsZero() {
		t.Fatalf("fixture private key is not a valid secp256k1 scalar")
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

	masterKey := make([]byte, 32)
	if _, err := rand.Read(masterKey); err != nil {
		t.Fatalf("rand.Read masterKey: %v", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("rand.Read salt: %v", err)
	}
	iterations := 1000

	derivedKey, outerIV := deriveKey(passphrase, salt, iterations)
	encryptedMasterKey := encryptCBCNoPadding(t, derivedKey, outerIV, masterKey)

	inIV := innerIV(pub)
	encryptedPrivateKey := encryptCBCNoPadding(t, masterKey, inIV, privateKey)

	return &wallet.Descriptor{
		Salt:                  salt,
		DerivationIterations:  iterations,
		EncryptedMasterKey:    encryptedMasterKey,
		EncryptedPrivateKey:   encryptedPrivateKey,
		UncompressedPublicKey: pub,
	}
}

func fixturePrivateKey() []byte {
	key := make([]byte, 32)
	key[31] = 0x01
	for i := 0; i < 30; i++ {
		key[i] = byte(i + 1)
	}
	return key
}

func TestTry_CorrectPassphraseMatches(t *testing.T) {
	d := buildDescriptor(t, "correct horse battery staple", fixturePrivateKey())
	if !Try("correct horse battery staple", d) {
		t.Fatalf("expected correct passphrase to match")
	}
}

func TestTry_WrongPassphraseDoesNotMatch(t *testing.T) {
	d := buildDescriptor(t, "correct horse battery staple", fixturePrivateKey())
	if Try("wrong passphrase", d) {
		t.Fatalf("expected wrong passphrase not to match")
	}
}

func TestTry_UnalignedCiphertextDoesNotCrash(t *testing.T) {
	d := buildDescriptor(t, "correct horse battery staple", fixturePrivateKey())
	d.EncryptedMasterKey = d.EncryptedMasterKey[:len(d.EncryptedMasterKey)-1]

	if Try("correct horse battery staple", d) {
		t.Fatalf("expected non-16-byte-aligned ciphertext not to match")
	}
}

func TestTry_EmptyCiphertextDoesNotCrash(t *testing.T) {
	d := buildDescriptor(t, "correct horse battery staple", fixturePrivateKey())
	d.EncryptedMasterKey = nil

	if Try("correct horse battery staple", d) {
		t.Fatalf("expected empty ciphertext not to match")
	}
}

func TestDerivePublicKey_RejectsZeroScalar(t *testing.T) {
	zero := make([]byte, 32)
	if _, ok := derivePublicKey(zero); ok {
		t.Fatalf("expected zero scalar to be rejected")
	}
}

func TestDerivePublicKey_RejectsWrongLength(t *testing.T) {
	if _, ok := derivePublicKey(make([]byte, 31)); ok {
		t.Fatalf("expected short key to be rejected")
	}
}
