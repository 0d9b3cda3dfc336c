package mcaeconfig

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/term"
)

// Secrets envelope parameters, identical to the teacher's
// pkg/config/secrets.go: scrypt for key derivation, AES-256-GCM for
// authenticated encryption, [salt][nonce][ciphertext+tag] on disk.
const (
	secretsFileName = "secrets.json.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768
	scryptR         = 8
	scryptP         = 1
	keySize         = 32
)

// Global in-memory secrets state, matching the teacher's decryptedSecrets
// singleton — populated once at startup by DecryptSecretsFile or
// PromptAndDecrypt, read by GetSecret at every LanguageModel/DocumentStore
// dial.
var (
	decryptedSecrets    map[string]string
	decryptedSecretsMux sync.RWMutex
)

// SetDecryptedSecrets installs secrets in memory directly, bypassing the
// encrypted file (useful for tests and for env-var-only deployments).
func SetDecryptedSecrets(secrets map[string]string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	decryptedSecrets = secrets
}

// GetSecret resolves a secret by name: in-memory decrypted secrets take
// precedence, falling back to an environment variable of the same name.
func GetSecret(name string) (string, error) {
	decryptedSecretsMux.RLock()
	if decryptedSecrets != nil {
		if value, ok := decryptedSecrets[name]; ok && value != "" {
			decryptedSecretsMux.RUnlock()
			return value, nil
		}
	}
	decryptedSecretsMux.RUnlock()

	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// SetSecret sets a single secret in memory, for callers assembling a set
// programmatically before SaveSecretsToFile.
func SetSecret(name, value string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	if decryptedSecrets == nil {
		decryptedSecrets = make(map[string]string)
	}
	decryptedSecrets[name] = value
}

// SecretsFileExists reports whether an encrypted secrets file is present
// under dir.
func SecretsFileExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, secretsFileName))
	return err == nil
}

// SaveSecretsToFile encrypts the current in-memory secrets with
// passphrase and writes them to dir.
func SaveSecretsToFile(dir, passphrase string) error {
	decryptedSecretsMux.RLock()
	secretsCopy := make(map[string]string, len(decryptedSecrets))
	for k, v := range decryptedSecrets {
		secretsCopy[k] = v
	}
	decryptedSecretsMux.RUnlock()
	return EncryptSecretsFile(dir, passphrase, secretsCopy)
}

// EncryptSecretsFile encrypts secrets with passphrase and writes the
// envelope to dir/secrets.json.enc with 0600 permissions.
func EncryptSecretsFile(dir, passphrase string, secrets map[string]string) error {
	passphraseBytes := []byte(passphrase)
	defer zero(passphraseBytes)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key(passphraseBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, secretsFileName)
	if err := os.WriteFile(path, fileData, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile decrypts dir/secrets.json.enc with passphrase and
// returns the plaintext secrets map. It corrects over-permissive file
// modes to 0600, matching the teacher's self-healing behavior.
func DecryptSecretsFile(dir, passphrase string) (map[string]string, error) {
	path := filepath.Join(dir, secretsFileName)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat secrets file: %w", err)
	}
	if info.Mode().Perm() != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, fmt.Errorf("fix secrets file permissions: %w", err)
		}
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	minSize := saltSize + nonceSize + 16 // GCM tag
	if len(fileData) < minSize {
		return nil, fmt.Errorf("secrets file is corrupted or invalid format")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	passphraseBytes := []byte(passphrase)
	defer zero(passphraseBytes)

	key, err := scrypt.Key(passphraseBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong passphrase or corrupted file)")
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	return secrets, nil
}

// PromptAndDecrypt reads a passphrase from the terminal (no echo, via
// golang.org/x/term) and decrypts dir's secrets file, installing the
// result as the in-memory singleton. This is the interactive path the
// cmd/mcae secrets subcommand drives, used instead of ever accepting a
// passphrase as a command-line argument.
func PromptAndDecrypt(dir string, fd int) error {
	fmt.Print("Enter secrets passphrase: ")
	passphraseBytes, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	defer zero(passphraseBytes)

	secrets, err := DecryptSecretsFile(dir, string(passphraseBytes))
	if err != nil {
		return err
	}
	SetDecryptedSecrets(secrets)
	return nil
}

// PromptAndEncrypt reads a passphrase twice (confirming the two entries
// match) and encrypts the given secrets to dir.
func PromptAndEncrypt(dir string, fd int, secrets map[string]string) error {
	fmt.Print("Enter new secrets passphrase: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	defer zero(first)

	fmt.Print("Confirm passphrase: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	defer zero(second)

	if string(first) != string(second) {
		return fmt.Errorf("passphrases do not match")
	}
	return EncryptSecretsFile(dir, string(first), secrets)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
