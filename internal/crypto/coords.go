package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrDecryption is returned for any ciphertext that cannot be turned back
// into a valid number.
var ErrDecryption = errors.New("failed to decrypt value")

// ErrCoordinateRange is returned for latitudes outside [-90,90] or
// longitudes outside [-180,180].
var ErrCoordinateRange = errors.New("coordinates out of range")

const (
	saltHeader = "Salted__"
	saltLen    = 8
	keyLen     = 32
)

// CoordinateCipher encrypts coordinates and scalars with a single shared
// passphrase. The output is the OpenSSL "Salted__" format produced by
// `openssl enc -aes-256-cbc -md md5` and by CryptoJS.AES with a string key,
// so ciphertext from browser clients and from this package is interchangeable.
//
// This is plain symmetric encryption. Anyone holding the passphrase,
// including the server, can read every coordinate; no predicate can be
// evaluated on the ciphertext.
type CoordinateCipher struct {
	passphrase []byte
}

// NewCoordinateCipher returns a cipher keyed by passphrase.
func NewCoordinateCipher(passphrase string) *CoordinateCipher {
	return &CoordinateCipher{passphrase: []byte(passphrase)}
}

// Encrypt encrypts a latitude/longitude pair. Each value gets its own salt,
// so encrypting the same point twice yields different ciphertext.
func (c *CoordinateCipher) Encrypt(lat, lng float64) (string, string, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return "", "", err
	}
	ctLat, err := c.EncryptScalar(lat)
	if err != nil {
		return "", "", err
	}
	ctLng, err := c.EncryptScalar(lng)
	if err != nil {
		return "", "", err
	}
	return ctLat, ctLng, nil
}

// Decrypt decrypts a latitude/longitude pair and checks both are in range.
func (c *CoordinateCipher) Decrypt(ctLat, ctLng string) (float64, float64, error) {
	lat, err := c.DecryptScalar(ctLat)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lng, err := c.DecryptScalar(ctLng)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	if err := validateCoordinates(lat, lng); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	return lat, lng, nil
}

// EncryptScalar encrypts the shortest decimal form of v.
func (c *CoordinateCipher) EncryptScalar(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("cannot encrypt non-finite value %v", v)
	}
	return c.encrypt([]byte(strconv.FormatFloat(v, 'f', -1, 64)))
}

// DecryptScalar decrypts ct and parses the plaintext as a finite number.
func (c *CoordinateCipher) DecryptScalar(ct string) (float64, error) {
	plain, err := c.decrypt(ct)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(plain)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: plaintext is not a number", ErrDecryption)
	}
	return v, nil
}

func (c *CoordinateCipher) encrypt(plain []byte) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key, iv := deriveKeyIV(c.passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(saltHeader)+saltLen+len(padded))
	copy(out, saltHeader)
	copy(out[len(saltHeader):], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(saltHeader)+saltLen:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *CoordinateCipher) decrypt(ct string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ct))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrDecryption)
	}
	if len(raw) < len(saltHeader)+saltLen || !bytes.Equal(raw[:len(saltHeader)], []byte(saltHeader)) {
		return nil, fmt.Errorf("%w: missing salt header", ErrDecryption)
	}

	salt := raw[len(saltHeader) : len(saltHeader)+saltLen]
	body := raw[len(saltHeader)+saltLen:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: invalid block length", ErrDecryption)
	}

	key, iv := deriveKeyIV(c.passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// deriveKeyIV is OpenSSL's EVP_BytesToKey with MD5 and a single iteration.
func deriveKeyIV(passphrase, salt []byte) ([]byte, []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+aes.BlockSize]
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte{}, b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrDecryption)
		}
	}
	return b[:len(b)-n], nil
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrCoordinateRange, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v", ErrCoordinateRange, lng)
	}
	return nil
}
