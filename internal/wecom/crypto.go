package wecom

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// The platform pads plaintext to 32-byte blocks before AES-256-CBC, and
// frames it as: 16 random bytes | 4-byte big-endian length | msg | receiveID.
const (
	padBlockSize = 32
	randomLen    = 16
	lengthLen    = 4
)

// ErrDecrypt covers every decryption failure (bad key, corrupt ciphertext,
// bad padding, bad framing). Callers never see partial plaintext.
var ErrDecrypt = errors.New("wecom: decryption failed")

// Signature computes the callback signature: token, timestamp, nonce and the
// encrypted payload are sorted lexicographically, concatenated and SHA-1
// hashed to a lowercase hex digest.
func Signature(token, timestamp, nonce, encrypted string) string {
	parts := []string{token, timestamp, nonce, encrypted}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature and compares it exactly against
// the supplied one.
func VerifySignature(token, timestamp, nonce, encrypted, supplied string) bool {
	return Signature(token, timestamp, nonce, encrypted) == supplied
}

// aesKey derives the 32-byte AES key from the configured EncodingAESKey
// (43 base64 characters with the trailing '=' stripped by convention).
func aesKey(encodingAESKey string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encodingAESKey + "=")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding key: %v", ErrDecrypt, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: encoding key must decode to 32 bytes, got %d", ErrDecrypt, len(key))
	}
	return key, nil
}

// Decrypt decodes and decrypts an encrypted payload, returning the inner
// plaintext XML and the receive id (corp or agent id) appended by the sender.
func Decrypt(encodingAESKey, encrypted string) ([]byte, string, error) {
	key, err := aesKey(encodingAESKey)
	if err != nil {
		return nil, "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, "", fmt.Errorf("%w: payload is not valid base64: %v", ErrDecrypt, err)
	}
	if len(ciphertext) < aes.BlockSize || len(ciphertext)%aes.BlockSize != 0 {
		return nil, "", fmt.Errorf("%w: ciphertext length %d not a block multiple", ErrDecrypt, len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, key[:aes.BlockSize]).CryptBlocks(plain, ciphertext)

	plain, err = pkcs7Unpad(plain)
	if err != nil {
		return nil, "", err
	}
	if len(plain) < randomLen+lengthLen {
		return nil, "", fmt.Errorf("%w: plaintext too short", ErrDecrypt)
	}

	msgLen := binary.BigEndian.Uint32(plain[randomLen : randomLen+lengthLen])
	rest := plain[randomLen+lengthLen:]
	if uint64(msgLen) > uint64(len(rest)) {
		return nil, "", fmt.Errorf("%w: message length %d exceeds payload", ErrDecrypt, msgLen)
	}

	msg := rest[:msgLen]
	receiveID := string(rest[msgLen:])
	return msg, receiveID, nil
}

// Encrypt is the inverse of Decrypt. The caller supplies 16 bytes of fresh
// random material each call; anything else is rejected.
func Encrypt(encodingAESKey string, plaintext []byte, receiveID string, random []byte) (string, error) {
	if len(random) != randomLen {
		return "", fmt.Errorf("wecom: random material must be %d bytes, got %d", randomLen, len(random))
	}
	key, err := aesKey(encodingAESKey)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, randomLen+lengthLen+len(plaintext)+len(receiveID)+padBlockSize)
	buf = append(buf, random...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(plaintext)))
	buf = append(buf, plaintext...)
	buf = append(buf, receiveID...)
	buf = pkcs7Pad(buf)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("wecom: %v", err)
	}
	ciphertext := make([]byte, len(buf))
	cipher.NewCBCEncrypter(block, key[:aes.BlockSize]).CryptBlocks(ciphertext, buf)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func pkcs7Pad(data []byte) []byte {
	n := padBlockSize - len(data)%padBlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecrypt)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > padBlockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	return data[:len(data)-n], nil
}
