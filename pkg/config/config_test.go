package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE", "memory")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CATALOG_TIMEOUT_MS", "250")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 8081, cfg.GRPCPort)
	assert.Equal(t, 250*time.Millisecond, cfg.Catalog.Timeout)
	assert.Equal(t, "USD", cfg.Currency)
}

func TestLoadPasswordAliases(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_URL", "postgres://localhost/shop")

	t.Run("DB_PASSWORD is accepted", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "secret")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "secret", cfg.Database.Password)
	})

	t.Run("DB_PASS wins over DB_PASSWORD", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "secret")
		t.Setenv("DB_PASS", "other")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "other", cfg.Database.Password)
	})
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store: memory
currency: eur
catalog:
  source: local
  default_stock: 7
`), 0o600))
	t.Setenv("CATALOG_DEFAULT_STOCK", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 3, cfg.Catalog.DefaultStock)
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_URL=postgres://db/shop\nDB_USER=shop\n"), 0o600))
	t.Setenv("DB_USER", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("DB_URL")
	})

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/shop", cfg.Database.URL)
	assert.Equal(t, "from-env", cfg.Database.User)
}

func TestValidate(t *testing.T) {
	t.Run("postgres without url -> error", func(t *testing.T) {
		cfg := Default()
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown store -> error", func(t *testing.T) {
		cfg := Default()
		cfg.Store = "bolt"
		assert.Error(t, cfg.Validate())
	})

	t.Run("remote catalog without url -> error", func(t *testing.T) {
		cfg := Default()
		cfg.Store = StoreMemory
		cfg.Catalog.Source = CatalogRemote
		assert.Error(t, cfg.Validate())
	})

	t.Run("memory store is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Store = StoreMemory
		assert.NoError(t, cfg.Validate())
	})
}

func TestReadSkipsValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GATEWAY_UPSTREAM", "shopd:9000")

	_, err := Load("")
	assert.Error(t, err)

	cfg, err := Read("")
	require.NoError(t, err)
	assert.Equal(t, "shopd:9000", cfg.Upstream)
}

func TestEnvIntegersAreDecimal(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE", "memory")
	t.Setenv("GRPC_PORT", "010")
	t.Setenv("CATALOG_DEFAULT_STOCK", "+7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.GRPCPort)
	assert.Equal(t, 7, cfg.Catalog.DefaultStock)
}

func TestMalformedEnvIntegers(t *testing.T) {
	for _, v := range []string{"80a", "0x50", "-", "1.5", "99999999999999999999"} {
		t.Run(v, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("STORE", "memory")
			t.Setenv("HTTP_PORT", v)

			_, err := Read("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "HTTP_PORT")
		})
	}

	t.Run("all reported", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("HTTP_PORT", "80a")
		t.Setenv("DB_MAX_CONNS", "ten")

		_, err := Read("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP_PORT")
		assert.Contains(t, err.Error(), "DB_MAX_CONNS")
	})
}
