package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// AlgAESGCM marks records sealed with AES-256-GCM.
const AlgAESGCM = "aes-256-gcm"

// Key derivation parameters. The salt is fixed so one password opens every
// report it sealed.
const (
	kdfSalt   = "salt"
	kdfN      = 16384
	kdfR      = 8
	kdfP      = 1
	keyLength = 32
)

// ErrDecrypt is returned for any failure to open an envelope. It never says
// whether the password or the data was at fault.
var ErrDecrypt = errors.New("unable to decrypt report")

// Key is an AES-256 key derived from a vault password.
type Key []byte

// DeriveKey runs scrypt over password.
func DeriveKey(password string) (Key, error) {
	k, err := scrypt.Key([]byte(password), []byte(kdfSalt), kdfN, kdfR, kdfP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("deriving vault key: %w", err)
	}
	return Key(k), nil
}

// Seal encrypts plaintext with AES-256-GCM under a fresh random nonce.
func (k Key) Seal(plaintext []byte) (Envelope, error) {
	aead, err := k.gcm()
	if err != nil {
		return Envelope{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("generating nonce: %w", err)
	}
	return Envelope{
		Alg:           AlgAESGCM,
		IV:            hex.EncodeToString(nonce),
		EncryptedData: hex.EncodeToString(aead.Seal(nil, nonce, plaintext, nil)),
	}, nil
}

// Open decrypts env. Envelopes without an algorithm are legacy AES-256-CBC
// with PKCS#7 padding.
func (k Key) Open(env Envelope) ([]byte, error) {
	iv, err := hex.DecodeString(env.IV)
	if err != nil {
		return nil, ErrDecrypt
	}
	data, err := hex.DecodeString(env.EncryptedData)
	if err != nil {
		return nil, ErrDecrypt
	}

	switch env.Alg {
	case AlgAESGCM:
		aead, err := k.gcm()
		if err != nil || len(iv) != aead.NonceSize() {
			return nil, ErrDecrypt
		}
		plain, err := aead.Open(nil, iv, data, nil)
		if err != nil {
			return nil, ErrDecrypt
		}
		return plain, nil
	case "":
		return k.openCBC(iv, data)
	default:
		return nil, ErrDecrypt
	}
}

func (k Key) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (k Key) openCBC(iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(iv) != aes.BlockSize || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return unpad(plain)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrDecrypt
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrDecrypt
		}
	}
	return b[:len(b)-n], nil
}
