package site

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDiscoverer(t *testing.T, baseURL string) *Discoverer {
	t.Helper()
	d, err := NewDiscoverer(baseURL, baseURL+"/category/power-interruption-update/", 5*time.Second, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return d
}

func categoryPage(base string, count int) string {
	page := "<html><body>"
	for i := 1; i <= count; i++ {
		page += fmt.Sprintf(`<article><h2><a href="%s/notice-%d/">Notice %d</a></h2></article>`, base, i, i)
	}
	return page + "</body></html>"
}

func TestDiscover_LimitsAnnouncements(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/category/power-interruption-update/":
			fmt.Fprint(w, categoryPage(srvURL, 3))
		default:
			fmt.Fprint(w, `<html><body>
				<time class="entry-date" datetime="2025-08-25T08:00:00+08:00">Aug 25</time>
				<div class="entry-content">
					<img src="/wp-content/uploads/2025/08/notice.png">
				</div>
			</body></html>`)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	d := newTestDiscoverer(t, srv.URL)
	anns, err := d.Discover(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, anns, 2)
	assert.Equal(t, "Notice 1", anns[0].Title)
	assert.Equal(t, srv.URL+"/notice-1/", anns[0].URL)
	assert.Equal(t, "Notice 2", anns[1].Title)
	assert.Equal(t, time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC), anns[0].PublishDate)
	require.Len(t, anns[0].ImageURLs, 1)
	assert.Equal(t, srv.URL+"/wp-content/uploads/2025/08/notice.png", anns[0].ImageURLs[0])
}

func TestDiscover_DateFallbackAndNoImages(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, time.September, 1, 15, 30, 0, 0, time.UTC))
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/category/power-interruption-update/":
			fmt.Fprint(w, categoryPage(srvURL, 1))
		default:
			// No time tag, no entry-content.
			fmt.Fprint(w, `<html><body><p>maintenance advisory</p></body></html>`)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	d := newTestDiscoverer(t, srv.URL)
	anns, err := d.Discover(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, anns, 1)
	assert.Equal(t, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), anns[0].PublishDate)
	assert.Empty(t, anns[0].ImageURLs)
}

func TestDiscover_DeduplicatesAndResolvesImages(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/category/power-interruption-update/":
			fmt.Fprint(w, categoryPage(srvURL, 1))
		default:
			fmt.Fprint(w, `<html><body>
				<time datetime="2025-08-25">Aug 25</time>
				<div class="entry-content">
					<img data-lazy-src="/wp-content/uploads/2025/08/a.jpg" src="data:image/gif;base64,R0lGOD">
					<img src="/wp-content/uploads/2025/08/a.jpg">
					<a href="/wp-content/uploads/2025/08/b.png"><img src="/wp-content/themes/placeholder.gif"></a>
					<img src="/wp-content/uploads/logo.webp">
				</div>
			</body></html>`)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	d := newTestDiscoverer(t, srv.URL)
	anns, err := d.Discover(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, anns, 1)
	assert.Equal(t, []string{
		srv.URL + "/wp-content/uploads/2025/08/a.jpg",
		srv.URL + "/wp-content/uploads/2025/08/b.png",
	}, anns[0].ImageURLs)
}

func TestDiscover_DetailFetchFailureFailsRun(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/category/power-interruption-update/" {
			fmt.Fprint(w, categoryPage(srvURL, 1))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	srvURL = srv.URL

	d := newTestDiscoverer(t, srv.URL)
	_, err := d.Discover(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notice-1")
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wp-content/uploads/ok.png" {
			_, _ = w.Write([]byte("png-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := newTestDiscoverer(t, srv.URL)

	data, err := d.FetchImage(context.Background(), srv.URL+"/wp-content/uploads/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	_, err = d.FetchImage(context.Background(), srv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
