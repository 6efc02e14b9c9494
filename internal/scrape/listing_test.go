package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingFetch(t *testing.T) {
	page := `<html><body>
		<article class="book-item">
			<h3><a href="/catalogue/dune_1/index.html">Dune</a></h3>
			<p class="byline">by Frank Herbert</p>
		</article>
		<article class="book-item">
			<h3><a href="https://example.com/hobbit">The  Hobbit</a></h3>
			<p class="byline">J.R.R. Tolkien</p>
		</article>
		<article class="book-item">
			<h3><a href="/catalogue/unnamed"></a></h3>
			<p class="byline">by Nobody</p>
		</article>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	adapter := NewListing(server.URL + "/catalogue/page-1.html")

	candidates, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2, "entry without title must be dropped")

	dune := candidates[0]
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, server.URL+"/catalogue/dune_1/index.html", dune.SourceURL, "relative link resolved against the page URL")
	assert.Equal(t, []string{"Frank Herbert"}, dune.Authors, "leading 'by ' stripped from byline")

	hobbit := candidates[1]
	assert.Equal(t, "The Hobbit", hobbit.Title)
	assert.Equal(t, "https://example.com/hobbit", hobbit.SourceURL, "absolute link passes through")
	assert.Equal(t, []string{"J.R.R. Tolkien"}, hobbit.Authors)
}

func TestListingFetchCapsAtTwenty(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, `<article class="book-item"><h3><a href="/b/%d">Book %d</a></h3></article>`, i, i)
	}
	sb.WriteString("</body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sb.String()))
	}))
	defer server.Close()

	candidates, err := NewListing(server.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, candidates, listingMaxCandidates)
}

func TestListingFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewListing(server.URL).Fetch(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "html-listing", fetchErr.Source)
}
