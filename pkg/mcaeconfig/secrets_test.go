package mcaeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptSecretsFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	secrets := map[string]string{"ANTHROPIC_API_KEY": "sk-test-123"}

	require.NoError(t, EncryptSecretsFile(dir, "correct horse battery staple", secrets))
	assert.True(t, SecretsFileExists(dir))

	decrypted, err := DecryptSecretsFile(dir, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, secrets, decrypted)
}

func TestDecryptSecretsFileWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptSecretsFile(dir, "right", map[string]string{"A": "b"}))

	_, err := DecryptSecretsFile(dir, "wrong")
	assert.Error(t, err)
}

func TestGetSecretFallsBackToEnv(t *testing.T) {
	SetDecryptedSecrets(nil)
	t.Setenv("MCAE_TEST_SECRET", "from-env")

	value, err := GetSecret("MCAE_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

func TestGetSecretPrefersInMemoryOverEnv(t *testing.T) {
	t.Setenv("MCAE_TEST_SECRET2", "from-env")
	SetDecryptedSecrets(map[string]string{"MCAE_TEST_SECRET2": "from-memory"})
	defer SetDecryptedSecrets(nil)

	value, err := GetSecret("MCAE_TEST_SECRET2")
	require.NoError(t, err)
	assert.Equal(t, "from-memory", value)
}
