package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAuto     CipherType = ""
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the size of derived keys for both algorithms.
const KeySize = 32

// MinSaltLength is the shortest salt accepted by DeriveKey.
const MinSaltLength = 16

// DefaultSalt is used when no salt is configured. Every process sharing a
// store must derive with the same salt.
var DefaultSalt = []byte("authrelay/claims")

// Argon2id parameters for passphrase derivation.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	ErrKeySize          = errors.New("adaptive: key must be 32 bytes")
	ErrCiphertextShort  = errors.New("adaptive: ciphertext too short")
	ErrEmptyPassphrase  = errors.New("adaptive: empty passphrase")
	ErrSaltSize         = errors.New("adaptive: salt must be at least 16 bytes")
	ErrUnknownAlgorithm = errors.New("adaptive: unknown cipher type")
)

// Cipher is an AEAD with a random nonce prepended to each ciphertext.
// It is safe for concurrent use.
type Cipher struct {
	typ  CipherType
	aead cipher.AEAD
}

// New creates a cipher of the given type from a 32-byte key. CipherAuto
// picks AES-GCM on amd64/arm64 and ChaCha20-Poly1305 elsewhere.
func New(key []byte, typ CipherType) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if typ == CipherAuto {
		typ = preferred()
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch typ {
	case CipherAESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, ErrUnknownAlgorithm
	}
	if err != nil {
		return nil, err
	}
	return &Cipher{typ: typ, aead: aead}, nil
}

// FromPassphrase derives a key from pass with DeriveKey and creates a
// cipher. A nil salt means DefaultSalt.
func FromPassphrase(pass string, salt []byte, typ CipherType) (*Cipher, error) {
	key, err := DeriveKey([]byte(pass), salt)
	if err != nil {
		return nil, err
	}
	return New(key, typ)
}

// DeriveKey stretches a passphrase into a KeySize key with Argon2id.
func DeriveKey(pass, salt []byte) ([]byte, error) {
	if len(pass) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if salt == nil {
		salt = DefaultSalt
	}
	if len(salt) < MinSaltLength {
		return nil, ErrSaltSize
	}
	return argon2.IDKey(pass, salt, argon2Time, argon2Memory, argon2Threads, KeySize), nil
}

// Type returns the cipher type.
func (c *Cipher) Type() CipherType { return c.typ }

// Overhead returns the nonce plus tag bytes added to each plaintext.
func (c *Cipher) Overhead() int { return c.aead.NonceSize() + c.aead.Overhead() }

// Encrypt seals plaintext bound to additionalData.
func (c *Cipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n+c.aead.Overhead() {
		return nil, ErrCiphertextShort
	}
	return c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}

// SealString encrypts s and returns base64 text, binding it to aad.
func (c *Cipher) SealString(s, aad string) (string, error) {
	out, err := c.Encrypt([]byte(s), []byte(aad))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// OpenString reverses SealString.
func (c *Cipher) OpenString(s, aad string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	out, err := c.Decrypt(raw, []byte(aad))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// preferred mirrors where Go's crypto/aes uses hardware instructions.
func preferred() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}
