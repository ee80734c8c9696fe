package container_test

import (
	"testing"

	"github.com/samber/do"
	"github.com/serroba/vaultlink/internal/config"
	"github.com/serroba/vaultlink/internal/container"
	"github.com/serroba/vaultlink/internal/messaging"
	"github.com/serroba/vaultlink/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newInjector(options *container.Options) *do.Injector {
	injector := do.New()
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.SecretsPackage(injector)
	container.RedisPackage(injector)
	container.ExpiryPackage(injector)

	return injector
}

func TestLoggerPackage(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		t.Run("builds a logger for format "+format, func(t *testing.T) {
			injector := newInjector(&container.Options{LogFormat: format})

			logger, err := do.Invoke[*zap.Logger](injector)

			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}

	t.Run("rejects unknown formats", func(t *testing.T) {
		injector := newInjector(&container.Options{LogFormat: "xml"})

		_, err := do.Invoke[*zap.Logger](injector)

		assert.Error(t, err)
	})
}

func TestSecretsPackage(t *testing.T) {
	t.Run("fails on missing secrets", func(t *testing.T) {
		injector := newInjector(&container.Options{})

		_, err := do.Invoke[*config.Secrets](injector)

		assert.ErrorIs(t, err, config.ErrMissingSecret)
	})

	t.Run("loads valid secrets", func(t *testing.T) {
		injector := newInjector(&container.Options{
			DatabaseURL: "postgres://localhost/db",
			CryptoKey:   "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			Host:        "short.example",
		})

		secrets, err := do.Invoke[*config.Secrets](injector)

		require.NoError(t, err)
		assert.Equal(t, "short.example", secrets.Host)
	})
}

func TestRedisPackage(t *testing.T) {
	t.Run("refuses to build without an address", func(t *testing.T) {
		injector := newInjector(&container.Options{})

		_, err := do.Invoke[*container.RedisConn](injector)

		assert.Error(t, err)
	})

	t.Run("builds a client and closes it on shutdown", func(t *testing.T) {
		injector := newInjector(&container.Options{RedisAddr: "localhost:6379"})

		conn, err := do.Invoke[*container.RedisConn](injector)
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", conn.Options().Addr)

		assert.NoError(t, injector.Shutdown())
	})
}

func TestExpiryPackage(t *testing.T) {
	t.Run("rejects unknown transports", func(t *testing.T) {
		injector := newInjector(&container.Options{ExpiryTransport: "carrier-pigeon"})

		_, err := do.Invoke[messaging.Publish[shortener.ExpiredEvent]](injector)

		assert.Error(t, err)
	})

	t.Run("redis transport requires redis", func(t *testing.T) {
		injector := newInjector(&container.Options{ExpiryTransport: container.TransportRedis})

		_, err := do.Invoke[messaging.Publish[shortener.ExpiredEvent]](injector)

		assert.Error(t, err)
	})
}

func TestServicePackage(t *testing.T) {
	t.Run("fails startup on an unsupported code length", func(t *testing.T) {
		for _, length := range []int{4, 17} {
			injector := newInjector(&container.Options{CodeLength: length})
			container.ServicePackage(injector)

			_, err := do.Invoke[*shortener.Service](injector)

			assert.ErrorIs(t, err, shortener.ErrInvalidCodeLength, "length %d", length)
		}
	})
}
