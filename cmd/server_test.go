package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type configTestDataProvider []struct {
	description string
	devMode     bool
	configFile  string
	expectErr   bool
}

func TestLoadServerConfig(t *testing.T) {
	// Restore flags once the test is done
	savedDevEnv, savedConfigFile := isDevEnv, serverConfigFile
	defer func() {
		isDevEnv, serverConfigFile = savedDevEnv, savedConfigFile
	}()

	invalidConfig := filepath.Join(t.TempDir(), "invalid.yml")
	require.NoError(t, os.WriteFile(invalidConfig, []byte("kavach:\n  baseURL: not-a-url\n"), 0600))

	testData := configTestDataProvider{
		{"embedded dev config", true, "", false},
		{"no config outside dev mode", false, "", true},
		{"missing config file", false, filepath.Join(t.TempDir(), "missing.yml"), true},
		{"config failing validation", false, invalidConfig, true},
	}

	for _, data := range testData {
		t.Run(data.description, func(t *testing.T) {
			isDevEnv, serverConfigFile = data.devMode, data.configFile

			config, err := loadServerConfig()
			if data.expectErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "sqlite", config.Database.Driver)
			assert.Equal(t, "local", config.Storage.Backend)
			assert.Equal(t, "Asia/Kolkata", config.Jobs.TimeZone)
			assert.Equal(t, 3000, config.Kavach.Listener.Port)
		})
	}
}

func TestLoadServerConfigEnvOverride(t *testing.T) {
	savedDevEnv, savedConfigFile := isDevEnv, serverConfigFile
	defer func() {
		isDevEnv, serverConfigFile = savedDevEnv, savedConfigFile
	}()

	isDevEnv, serverConfigFile = true, ""
	t.Setenv("KAVACH_KAVACH_LISTENER_PORT", "8080")
	t.Setenv("KAVACH_JOBS_TIMEZONE", "UTC")

	config, err := loadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Kavach.Listener.Port)
	assert.Equal(t, "UTC", config.Jobs.TimeZone)
}
