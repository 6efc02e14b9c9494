package cmd

import (
	"os"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/kirjava/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCmdState(t *testing.T) {
	origDBFile := config.CatalogDBFile

	t.Cleanup(func() {
		config.CatalogDBFile = origDBFile
		viper.Reset()
	})

	viper.Reset()
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	originalArgs := os.Args
	os.Args = append([]string{"kirjava"}, args...)
	t.Cleanup(func() { os.Args = originalArgs })

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("kirjava"),
		kong.Description("Ingests bibliographic records from external sources into a deduplicated catalog."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)

	return cli, ctx
}

func TestUpdateGlobalConfig(t *testing.T) {
	resetCmdState(t)

	cli := &CLI{DBFile: "/tmp/catalog.db"}

	updateGlobalConfig(cli)

	assert.Equal(t, "/tmp/catalog.db", config.CatalogDBFile)
}

func TestScrapeCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, ctx := parseCLI(t,
		"scrape", "--type", "api-a", "-q", "science_fiction", "-s", "openlibrary", "--limit", "25")

	require.Equal(t, "scrape", ctx.Command())
	assert.Equal(t, "api-a", cli.Scrape.Type)
	assert.Equal(t, "science_fiction", cli.Scrape.Query)
	assert.Equal(t, "openlibrary", cli.Scrape.Source)
	assert.Equal(t, 25, cli.Scrape.Limit)
}

func TestBatchCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, ctx := parseCLI(t, "batch", "-f", "specs.yaml", "--db-file", "books.db", "--cache=false")

	require.Equal(t, "batch", ctx.Command())
	assert.Equal(t, "specs.yaml", cli.Batch.File)
	assert.Equal(t, "books.db", cli.DBFile)
	assert.False(t, cli.Cache)
}

func TestLogsCommandDefaults(t *testing.T) {
	resetCmdState(t)

	cli, ctx := parseCLI(t, "logs")

	require.Equal(t, "logs", ctx.Command())
	assert.Equal(t, 20, cli.Logs.Limit)
	assert.True(t, cli.Cache)
	assert.Equal(t, "./catalog.db", cli.DBFile)
	assert.Equal(t, "720h", cli.CacheTTL)
}
