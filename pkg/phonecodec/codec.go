// Package phonecodec encrypts the phone number stored on user records and
// tells migrated ciphertext apart from legacy plaintext.
package phonecodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/hkdf"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

const (
	versionPrefix = "v1:"
	hkdfInfo      = "course-registration/phone/v1"
)

// ErrMissingKey is returned when a codec is built without a key.
var ErrMissingKey = errors.New("phonecodec: encryption key is required")

// legacyPlaintext matches values written before encryption was introduced.
var legacyPlaintext = regexp.MustCompile(`^[\d-]+$`)

// Codec is safe for concurrent use. Its key never changes after New.
type Codec struct {
	aead             cipher.AEAD
	legacyPassphrase []byte
}

// Option configures a Codec.
type Option func(*Codec)

// WithLegacyPassphrase enables reading OpenSSL-style salted ciphertexts
// produced from the given passphrase.
func WithLegacyPassphrase(passphrase string) Option {
	return func(c *Codec) {
		if passphrase != "" {
			c.legacyPassphrase = []byte(passphrase)
		}
	}
}

// New derives an AES-256 key from secret.
func New(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive phone key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init phone cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init phone gcm: %w", err)
	}
	c := &Codec{aead: aead}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encrypt seals plaintext. The output always carries a version prefix and
// therefore never looks like legacy plaintext.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt, or a legacy salted ciphertext
// when a legacy passphrase is configured. Every failure is ErrDecryption.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	var (
		plain []byte
		err   error
	)
	if strings.HasPrefix(ciphertext, versionPrefix) {
		plain, err = c.openV1(strings.TrimPrefix(ciphertext, versionPrefix))
	} else if c.legacyPassphrase != nil {
		plain, err = openSalted(ciphertext, c.legacyPassphrase)
	} else {
		err = errors.New("unknown ciphertext format")
	}
	if err == nil && len(plain) == 0 {
		err = errors.New("empty plaintext")
	}
	if err == nil && !utf8.Valid(plain) {
		err = errors.New("plaintext is not utf-8")
	}
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrDecryption.Code, appErrors.ErrDecryption.Status, appErrors.ErrDecryption.Message)
	}
	return string(plain), nil
}

func (c *Codec) openV1(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return nil, errors.New("ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plain, nil
}

// IsEncrypted reports whether a stored value is ciphertext. A string made
// only of digits and hyphens is legacy plaintext; anything else is not.
func IsEncrypted(value string) bool {
	return !legacyPlaintext.MatchString(value)
}

// NormalizePhone strips hyphens before a phone number is encrypted.
func NormalizePhone(phone string) string {
	return strings.ReplaceAll(strings.TrimSpace(phone), "-", "")
}

// FormatPhoneNumber renders an 11 digit number as 3-4-4. Other inputs are
// returned unchanged.
func FormatPhoneNumber(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 11 {
		return phone
	}
	return d[:3] + "-" + d[3:7] + "-" + d[7:]
}
