package metadata

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

func TestValidate(t *testing.T) {
	ok := Token{Name: "Moon", Symbol: "MOON", FilePath: "logo.PNG"}
	require.NoError(t, ok.Validate())
	assert.Equal(t, "image/png", ok.ContentType())

	cases := map[string]Token{
		"no name":     {Symbol: "M", FilePath: "a.png"},
		"long name":   {Name: strings.Repeat("n", 33), Symbol: "M", FilePath: "a.png"},
		"no symbol":   {Name: "Moon", FilePath: "a.png"},
		"long symbol": {Name: "Moon", Symbol: "ABCDEFGHIJK", FilePath: "a.png"},
		"no image":    {Name: "Moon", Symbol: "M"},
		"gif":         {Name: "Moon", Symbol: "M", FilePath: "a.gif"},
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, types.IsKind(tok.Validate(), types.KindValidation))
		})
	}
}

func TestLoadResolvesImagePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Moon","symbol":"MOON","description":"d","file":"logo.jpg","twitter":"@moon"}`), 0o600))

	tok, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logo.jpg"), tok.FilePath)
	assert.Equal(t, "@moon", tok.Twitter)

	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Moon"`), 0o600))
	_, err = Load(path)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

type pinned struct {
	filename    string
	contentType string
	content     []byte
	apiKey      string
	secret      string
}

func pinata(t *testing.T, status int) (*httptest.Server, *[]pinned) {
	t.Helper()
	var mu sync.Mutex
	var got []pinned
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		raw, _ := io.ReadAll(f)
		mu.Lock()
		got = append(got, pinned{
			filename:    hdr.Filename,
			contentType: hdr.Header.Get("Content-Type"),
			content:     raw,
			apiKey:      r.Header.Get("pinata_api_key"),
			secret:      r.Header.Get("pinata_secret_api_key"),
		})
		n := len(got)
		mu.Unlock()
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, `{"IpfsHash":"cid`+string(rune('0'+n))+`","PinSize":1}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func token(t *testing.T) Token {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG fake"), 0o600))
	return Token{Name: "Moon", Symbol: "MOON", Description: "to the moon", FilePath: path, Website: "https://moon.example"}
}

func TestPinataUpload(t *testing.T) {
	srv, got := pinata(t, http.StatusOK)
	u := NewPinataUploader(config.Pinata{Endpoint: srv.URL, APIKey: "key", SecretKey: "secret"}, zerolog.Nop())

	uri, err := u.Upload(context.Background(), token(t))
	require.NoError(t, err)
	assert.Equal(t, "ipfs://cid2", uri)

	require.Len(t, *got, 2)
	img, doc := (*got)[0], (*got)[1]
	assert.Equal(t, "logo.png", img.filename)
	assert.Equal(t, "image/png", img.contentType)
	assert.Equal(t, []byte("\x89PNG fake"), img.content)
	assert.Equal(t, "key", img.apiKey)
	assert.Equal(t, "secret", img.secret)

	assert.Equal(t, "metadata.json", doc.filename)
	var d Document
	require.NoError(t, json.Unmarshal(doc.content, &d))
	assert.Equal(t, "Moon", d.Name)
	assert.Equal(t, "ipfs://cid1", d.Image)
	require.Len(t, d.Properties.Files, 1)
	assert.Equal(t, "ipfs://cid1", d.Properties.Files[0].URI)
	assert.Equal(t, "image", d.Properties.Category)
	assert.Equal(t, "https://moon.example", d.ExternalURL)
}

func TestPinataUploadErrors(t *testing.T) {
	srv, got := pinata(t, http.StatusUnauthorized)
	u := NewPinataUploader(config.Pinata{Endpoint: srv.URL, APIKey: "key", SecretKey: "bad"}, zerolog.Nop())
	_, err := u.Upload(context.Background(), token(t))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindTransient))
	assert.Len(t, *got, 1, "metadata is not pinned after the image fails")

	u = NewPinataUploader(config.Pinata{Endpoint: srv.URL}, zerolog.Nop())
	_, err = u.Upload(context.Background(), token(t))
	assert.True(t, types.IsKind(err, types.KindValidation))

	u = NewPinataUploader(config.Pinata{Endpoint: srv.URL, APIKey: "k", SecretKey: "s"}, zerolog.Nop())
	_, err = u.Upload(context.Background(), Token{Name: "Moon", Symbol: "M", FilePath: filepath.Join(t.TempDir(), "none.png")})
	assert.True(t, types.IsKind(err, types.KindValidation))
}
