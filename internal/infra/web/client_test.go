package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionCookie = "reader_session"

// newLibraryServer serves a login form and three paginated chapters that
// require the session cookie set by a successful login.
func newLibraryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	loginForm := `<html><body>
		<form method="post" action="/session">
			<input type="hidden" name="csrf" value="token-123">
			<input type="text" name="email">
			<input type="password" name="password">
		</form></body></html>`

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginForm)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("csrf") != "token-123" ||
			r.PostForm.Get("email") != "reader@example.com" ||
			r.PostForm.Get("password") != "correct" {
			fmt.Fprint(w, loginForm)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "ok", Path: "/"})
		fmt.Fprint(w, `<html><body>Welcome back</body></html>`)
	})
	mux.HandleFunc("/book/", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(sessionCookie); err != nil || c.Value != "ok" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		page := strings.TrimPrefix(r.URL.Path, "/book/")
		next := map[string]string{"1": "2", "2": "3"}[page]
		nav := ""
		if next != "" {
			nav = fmt.Sprintf(`<a class="next" href="/book/%s">Next</a>`, next)
		}
		fmt.Fprintf(w, `<html><body>
			<nav>Menu Home</nav>
			<article>Chapter %s <script>var x = 1;</script> text
			   spans lines.</article>%s</body></html>`, page, nav)
	})
	return httptest.NewServer(mux)
}

func TestClient_LoginAndPaginate(t *testing.T) {
	server := newLibraryServer(t)
	defer server.Close()

	client, err := New(Config{
		LoginURL:        server.URL + "/login",
		ContentSelector: "article",
		NextSelector:    "a.next",
		MaxPages:        10,
		PageSeparator:   "\n\n",
	})
	require.NoError(t, err)
	require.True(t, client.HasLogin())

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "reader@example.com", "correct"))

	text, err := client.FetchText(ctx, server.URL+"/book/1")
	require.NoError(t, err)
	assert.Equal(t,
		"Chapter 1 text spans lines.\n\nChapter 2 text spans lines.\n\nChapter 3 text spans lines.",
		text)
}

func TestClient_MaxPages(t *testing.T) {
	server := newLibraryServer(t)
	defer server.Close()

	client, err := New(Config{
		LoginURL:        server.URL + "/login",
		ContentSelector: "article",
		NextSelector:    "a.next",
		MaxPages:        2,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "reader@example.com", "correct"))

	text, err := client.FetchText(ctx, server.URL+"/book/1")
	require.NoError(t, err)
	assert.Contains(t, text, "Chapter 2")
	assert.NotContains(t, text, "Chapter 3")
}

func TestClient_LoginFailed(t *testing.T) {
	server := newLibraryServer(t)
	defer server.Close()

	client, err := New(Config{LoginURL: server.URL + "/login"})
	require.NoError(t, err)

	err = client.Login(context.Background(), "reader@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoginFailed))

	err = client.Login(context.Background(), "", "")
	assert.True(t, errors.Is(err, ErrLoginFailed))
}

func TestClient_LoginSkippedWithoutURL(t *testing.T) {
	client, err := New(Config{})
	require.NoError(t, err)

	assert.False(t, client.HasLogin())
	assert.NoError(t, client.Login(context.Background(), "", ""))
}

func TestClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div>nothing here</div></body></html>`)
	}))
	defer server.Close()

	client, err := New(Config{ContentSelector: "article"})
	require.NoError(t, err)

	_, err = client.FetchText(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyContent))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><body><p>finally</p></body></html>`)
	}))
	defer server.Close()

	client, err := New(Config{RetryCount: 3, RetryWait: time.Millisecond})
	require.NoError(t, err)

	text, err := client.FetchText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "finally", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client, err := New(Config{})
	require.NoError(t, err)

	_, err = client.FetchText(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_NextLinkLoop(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `<html><body><p>same page</p><a class="next" href="/">again</a></body></html>`)
	}))
	defer server.Close()

	client, err := New(Config{ContentSelector: "p", NextSelector: "a.next", MaxPages: 5})
	require.NoError(t, err)

	text, err := client.FetchText(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "same page", text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
		<p>First   paragraph
		continues.</p>
		<p><style>p { color: red }</style>Second</p>
		<p>   </p>
	</body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "First paragraph continues.\n\nSecond", ExtractText(doc.Find("p")))
	assert.Equal(t, "", ExtractText(doc.Find("article")))
}
