// Package sealed encrypts individual form fields with a passphrase from
// configuration. It wraps filippo.io/age with an scrypt recipient.
//
// Ciphertext is base64-encoded so it can travel in JSON payloads. Callers
// pass plaintext strings to Encrypt and receive base64 strings; Decrypt
// does the reverse.
package sealed

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// ErrNoPassphrase is returned when a Sealer is created without a key.
var ErrNoPassphrase = errors.New("sealed: passphrase is required")

// Sealer encrypts and decrypts field values with one passphrase.
type Sealer struct {
	passphrase string
	workFactor int
}

// New creates a Sealer. workFactor is the scrypt log2 cost; values outside
// 1..30 fall back to age's default.
func New(passphrase string, workFactor int) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if workFactor < 1 || workFactor > 30 {
		workFactor = 0
	}
	return &Sealer{passphrase: passphrase, workFactor: workFactor}, nil
}

// Encrypt encrypts plaintext and returns base64 ciphertext. Empty or
// whitespace-only plaintext encrypts to "".
func (s *Sealer) Encrypt(plaintext string) (string, error) {
	if strings.TrimSpace(plaintext) == "" {
		return "", nil
	}

	recipient, err := age.NewScryptRecipient(s.passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	var ciphertextBuffer bytes.Buffer
	writer, err := age.Encrypt(&ciphertextBuffer, recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := io.WriteString(writer, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertextBuffer.Bytes()), nil
}

// Decrypt reverses Encrypt. An empty ciphertext decrypts to "".
func (s *Sealer) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	identity, err := age.NewScryptIdentity(s.passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt identity: %w", err)
	}

	rawCiphertext, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(rawCiphertext), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return string(plaintext), nil
}
