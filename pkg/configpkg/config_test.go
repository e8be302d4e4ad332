package configpkg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	content := "DB_DRIVER=memory\nSERVER_ADDRESS=127.0.0.1:9090\nTOKEN_SYMMETRIC_KEY=12345678901234567890123456789012\n"
	err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600)
	require.NoError(t, err)

	t.Setenv("LEDGER_MAX_RETRIES", "5")

	got, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, DriverMemory, got.DBDriver)
	require.Equal(t, "127.0.0.1:9090", got.ServerAddress)
	require.Equal(t, 5, got.LedgerMaxRetries)
	require.Equal(t, 2*time.Second, got.LedgerLockTimeout)
	require.Equal(t, "LT", got.AccountCountryCode)
	require.Equal(t, "paseto", got.TokenType)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestLoadRejectsCountryCode(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "app.env"), []byte("DB_DRIVER=memory\n"), 0o600)
	require.NoError(t, err)

	for _, cc := range []string{"lt", "LTU", "L1"} {
		t.Run("code="+cc, func(t *testing.T) {
			t.Setenv("ACCOUNT_COUNTRY_CODE", cc)

			_, err := Load(dir)
			require.ErrorIs(t, err, ErrInvalidCountryCode)
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Config{AccountCountryCode: "DE"}.Validate())
	require.ErrorIs(t, Config{AccountCountryCode: "de"}.Validate(), ErrInvalidCountryCode)
}
