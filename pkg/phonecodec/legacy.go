package phonecodec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // required by the OpenSSL key derivation
	"encoding/base64"
	"errors"
	"fmt"
)

const saltedMagic = "Salted__"

// openSalted decrypts the OpenSSL "Salted__" envelope (AES-256-CBC with an
// EVP_BytesToKey MD5 derivation) written by the previous front end.
func openSalted(encoded string, passphrase []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode legacy ciphertext: %w", err)
	}
	if len(raw) < 16+aes.BlockSize || !bytes.HasPrefix(raw, []byte(saltedMagic)) {
		return nil, errors.New("legacy ciphertext missing salt header")
	}
	salt, body := raw[8:16], raw[16:]
	if len(body)%aes.BlockSize != 0 {
		return nil, errors.New("legacy ciphertext not block aligned")
	}
	key, iv := evpBytesToKey(passphrase, salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init legacy cipher: %w", err)
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func evpBytesToKey(passphrase, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var (
		derived []byte
		prev    []byte
	)
	for len(derived) < keyLen+ivLen {
		h := md5.New() //nolint:gosec
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-pad], nil
}
