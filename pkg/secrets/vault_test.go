package secrets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"novel-forge/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		if r.URL.Path != "/v1/secret/data/novel-forge" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors":[]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"data":{"ai_api_key":"sk-from-vault"},"metadata":{"version":1}}}`)
	}))
}

func newTestManager(t *testing.T, addr string) *VaultManager {
	t.Helper()
	m, err := NewVaultManager(VaultConfig{
		Address:     addr,
		Token:       "root-token",
		SecretsPath: "secret/data/novel-forge",
	}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestNewVaultManagerRequiresAddressAndToken(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Token: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)
	_, err = NewVaultManager(VaultConfig{Address: "http://127.0.0.1:8200"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func TestVaultManagerReadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := newVaultServer(t, &hits)
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	for i := 0; i < 3; i++ {
		v, err := m.GetSecret(context.Background(), "ai_api_key")
		require.NoError(t, err)
		assert.Equal(t, "sk-from-vault", v)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestVaultManagerFallsBackToEnvironment(t *testing.T) {
	var hits atomic.Int32
	srv := newVaultServer(t, &hits)
	defer srv.Close()

	t.Setenv("REDIS_PASSWORD", "from-env")
	m := newTestManager(t, srv.URL)

	v, err := m.GetSecret(context.Background(), "redis-password")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "missing_key", "fallback"))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "current", Resolve(context.Background(), nil, "ai_api_key", "current"))

	var hits atomic.Int32
	srv := newVaultServer(t, &hits)
	defer srv.Close()
	assert.Equal(t, "sk-from-vault", Resolve(context.Background(), newTestManager(t, srv.URL), "ai_api_key", "current"))
}
