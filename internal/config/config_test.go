package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestInitConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	InitConfig()

	assert.Equal(t, "./catalog.db", CatalogDBFile)
	assert.Equal(t, 15*time.Second, FetchTimeout)
	assert.Equal(t, 2*time.Second, RunDelay)
	assert.Contains(t, UserAgent, "kirjava")
	assert.Empty(t, GoogleBooksAPIKey)
}

func TestInitConfigOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("catalog.dbfile", "/tmp/test-catalog.db")
	viper.Set("scrape.delay", "500ms")
	viper.Set("googlebooks.apikey", "test-key")

	InitConfig()

	assert.Equal(t, "/tmp/test-catalog.db", CatalogDBFile)
	assert.Equal(t, 500*time.Millisecond, RunDelay)
	assert.Equal(t, "test-key", GoogleBooksAPIKey)
}
