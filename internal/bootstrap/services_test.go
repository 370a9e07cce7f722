package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/import-api/config"
)

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))

	cfg := &config.AppConfig{Services: "http,supervisor"}
	require.NoError(t, ValidateServiceConfig(cfg))

	cfg = &config.AppConfig{Services: "http,bogus"}
	require.Error(t, ValidateServiceConfig(cfg))
}

func TestGetEnabledServices(t *testing.T) {
	cfg := &config.AppConfig{Services: "http,supervisor"}
	names := GetEnabledServices(cfg)
	assert.ElementsMatch(t, []string{"http", "supervisor"}, names)

	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
}

func TestNewServices_RequiresConfig(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)

	_, err = NewServices(&ServiceDeps{})
	require.Error(t, err)
}

func TestNewServices_BuildsGraphWithoutRedis(t *testing.T) {
	cfg := &config.AppConfig{Services: "http"}
	cfg.Sanitize()

	services, err := NewServices(&ServiceDeps{Config: cfg})
	require.NoError(t, err)
	require.NotNil(t, services.Importer)
	require.NotNil(t, services.Pool)
	require.NotNil(t, services.Supervisor)
	assert.Nil(t, services.Cache)
}
