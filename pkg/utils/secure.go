package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// encryptKeySourceEnv is the environment variable holding the key used to
// encrypt notification channel secrets (SMTP passwords, webhook tokens,
// SMS API keys) at rest. Falls back to a fixed development key so a
// freshly-cloned instance still boots.
const encryptKeySourceEnv = "PULSEGUARD_ENCRYPTION_KEY"

func encryptKey() string {
	if k := os.Getenv(encryptKeySourceEnv); k != "" {
		return k
	}
	return "dev-only-encryption-key-do-not-use-in-prod"
}

// EncryptString AES-GCM encrypts input using the configured encryption key.
func EncryptString(input string) string {
	keyHash := sha256.Sum256([]byte(encryptKey()))
	block, err := aes.NewCipher(keyHash[:])
	if err != nil {
		return fmt.Sprintf("encryption_error: %v", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Sprintf("encryption_error: %v", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Sprintf("encryption_error: %v", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(input), nil)
	return base64.StdEncoding.EncodeToString(ciphertext)
}

// DecryptString reverses EncryptString.
func DecryptString(encrypted string) (string, error) {
	keyHash := sha256.Sum256([]byte(encryptKey()))
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	block, err := aes.NewCipher(keyHash[:])
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
