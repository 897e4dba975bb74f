package phonecodec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := New("test-secret")
	require.NoError(t, err)

	for _, phone := range []string{"01012345678", "010-1234-5678", "+82 10 9876 5432", "0"} {
		encrypted, err := codec.Encrypt(phone)
		require.NoError(t, err)
		assert.NotEqual(t, phone, encrypted)
		assert.True(t, IsEncrypted(encrypted))

		decrypted, err := codec.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, phone, decrypted)
	}
}

func TestCodecEncryptIsRandomized(t *testing.T) {
	codec, err := New("test-secret")
	require.NoError(t, err)

	a, err := codec.Encrypt("01012345678")
	require.NoError(t, err)
	b, err := codec.Encrypt("01012345678")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestDecryptFailures(t *testing.T) {
	codec, err := New("key-one")
	require.NoError(t, err)
	other, err := New("key-two")
	require.NoError(t, err)

	foreign, err := other.Encrypt("01012345678")
	require.NoError(t, err)
	empty, err := codec.Encrypt("")
	require.NoError(t, err)

	cases := map[string]string{
		"wrong key":      foreign,
		"garbage":        "not-a-ciphertext!",
		"bad base64":     "v1:%%%",
		"truncated":      "v1:AAAA",
		"empty result":   empty,
		"legacy no pass": "U2FsdGVkX1+abc",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := codec.Decrypt(input)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.True(t, errors.Is(err, appErrors.ErrDecryption))
		})
	}
}

func TestIsEncrypted(t *testing.T) {
	assert.False(t, IsEncrypted("010-1234-5678"))
	assert.False(t, IsEncrypted("01012345678"))
	assert.True(t, IsEncrypted("U2FsdGVkX19abc="))
	assert.True(t, IsEncrypted("010 1234 5678"))
}

func TestLegacySaltedCiphertext(t *testing.T) {
	const passphrase = "legacy-passphrase"
	legacy := sealSalted(t, []byte(passphrase), []byte("01012345678"))

	codec, err := New("new-secret", WithLegacyPassphrase(passphrase))
	require.NoError(t, err)

	plain, err := codec.Decrypt(legacy)
	require.NoError(t, err)
	assert.Equal(t, "01012345678", plain)

	wrong, err := New("new-secret", WithLegacyPassphrase("other"))
	require.NoError(t, err)
	_, err = wrong.Decrypt(legacy)
	assert.True(t, errors.Is(err, appErrors.ErrDecryption))
}

func TestFormatAndNormalize(t *testing.T) {
	assert.Equal(t, "010-1234-5678", FormatPhoneNumber("01012345678"))
	assert.Equal(t, "010-1234-5678", FormatPhoneNumber("010-1234-5678"))
	assert.Equal(t, "02-123-4567", FormatPhoneNumber("02-123-4567"))
	assert.Equal(t, "01012345678", NormalizePhone(" 010-1234-5678 "))
}

// sealSalted reproduces the OpenSSL salted envelope for fixtures.
func sealSalted(t *testing.T, passphrase, plain []byte) string {
	t.Helper()
	salt := []byte("12345678")
	key, iv := evpBytesToKey(passphrase, salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	envelope := append(append([]byte(saltedMagic), salt...), out...)
	return base64.StdEncoding.EncodeToString(envelope)
}
