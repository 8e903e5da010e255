package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

const (
	accessIDLength   = 8
	accessIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// AccessIDCipher генерирует, шифрует и хеширует коды доступа групп.
// В базе лежит шифротекст (для показа участникам) и HMAC (для поиска при вступлении).
type AccessIDCipher struct {
	aead   cipher.AEAD
	macKey []byte
}

// NewAccessIDCipher выводит ключи шифрования и HMAC из секрета
func NewAccessIDCipher(secret string) (*AccessIDCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("access id secret is empty")
	}

	keys := hkdf.New(sha256.New, []byte(secret), nil, []byte("scholium access id"))
	encKey := make([]byte, 32)
	macKey := make([]byte, 32)
	if _, err := io.ReadFull(keys, encKey); err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	if _, err := io.ReadFull(keys, macKey); err != nil {
		return nil, fmt.Errorf("derive mac key: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &AccessIDCipher{aead: aead, macKey: macKey}, nil
}

// Generate новый код из 8 символов [A-Za-z0-9]
func (c *AccessIDCipher) Generate() (string, error) {
	buf := make([]byte, accessIDLength)
	limit := big.NewInt(int64(len(accessIDAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate access id: %w", err)
		}
		buf[i] = accessIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Encrypt шифрует код, nonce идёт префиксом
func (c *AccessIDCipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt обратная операция к Encrypt
func (c *AccessIDCipher) Decrypt(encrypted string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("decode access id: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("decode access id: ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt access id: %w", err)
	}
	return string(plain), nil
}

// Digest детерминированный отпечаток кода для поиска
func (c *AccessIDCipher) Digest(plain string) string {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidAccessID проверяет форму кода до обращения к базе
func ValidAccessID(value string) bool {
	if len(value) != accessIDLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if !(ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9') {
			return false
		}
	}
	return true
}
