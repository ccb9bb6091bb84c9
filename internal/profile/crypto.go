package profile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

// File layout: magic(4) || salt(16) || nonce(12) || AES-256-GCM ciphertext.
var storeMagic = []byte("LMP1")

const (
	saltSize  = 16
	nonceSize = 12
)

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, 32)
}

func seal(plain []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(storeMagic)+saltSize+nonceSize+len(plain)+gcm.Overhead())
	out = append(out, storeMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

func open(sealed []byte, passphrase string) ([]byte, error) {
	header := len(storeMagic) + saltSize + nonceSize
	if len(sealed) < header {
		return nil, errors.New("profile store truncated")
	}
	if string(sealed[:len(storeMagic)]) != string(storeMagic) {
		return nil, errors.New("profile store has unknown format")
	}
	salt := sealed[len(storeMagic) : len(storeMagic)+saltSize]
	nonce := sealed[len(storeMagic)+saltSize : header]
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, sealed[header:], nil)
	if err != nil {
		return nil, errors.New("profile store cannot be decrypted; wrong passphrase?")
	}
	return plain, nil
}
