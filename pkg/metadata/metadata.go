// Package metadata describes a token launch and pins its image and
// Metaplex JSON to IPFS through Pinata.
package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// Token is what the launcher knows about a coin before it exists.
type Token struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	FilePath    string `json:"file"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
	Website     string `json:"website,omitempty"`
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Validate checks the limits the create instruction enforces and the image type.
func (t Token) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return types.NewValidationError("name", "is required")
	}
	if len(t.Name) > autofill.MaxNameLen {
		return types.NewValidationError("name", fmt.Sprintf("must be at most %d bytes, got %d", autofill.MaxNameLen, len(t.Name)))
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return types.NewValidationError("symbol", "is required")
	}
	if len(t.Symbol) > autofill.MaxSymbolLen {
		return types.NewValidationError("symbol", fmt.Sprintf("must be at most %d bytes, got %d", autofill.MaxSymbolLen, len(t.Symbol)))
	}
	if t.FilePath == "" {
		return types.NewValidationError("file", "image path is required")
	}
	if _, ok := imageTypes[strings.ToLower(filepath.Ext(t.FilePath))]; !ok {
		return types.NewValidationError("file", "image must be png, jpg or jpeg")
	}
	return nil
}

// ContentType is the MIME type of the image.
func (t Token) ContentType() string {
	return imageTypes[strings.ToLower(filepath.Ext(t.FilePath))]
}

// Load reads a token description from a JSON file. A relative image path is
// resolved against the file's directory.
func Load(path string) (Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Token{}, fmt.Errorf("read metadata: %w", err)
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, types.Validationf("load metadata", "%s: %v", path, err)
	}
	if t.FilePath != "" && !filepath.IsAbs(t.FilePath) {
		t.FilePath = filepath.Join(filepath.Dir(path), t.FilePath)
	}
	if err := t.Validate(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// File is one entry of properties.files.
type File struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// Properties is the Metaplex properties block.
type Properties struct {
	Files    []File   `json:"files"`
	Category string   `json:"category"`
	Creators []string `json:"creators"`
}

// Document is the off-chain JSON the token URI points at.
type Document struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Attributes  []string   `json:"attributes"`
	Properties  Properties `json:"properties"`
	ExternalURL string     `json:"external_url"`
	Twitter     string     `json:"twitter"`
	Telegram    string     `json:"telegram"`
}

// NewDocument builds the Metaplex JSON for t with its pinned image URI.
func NewDocument(t Token, imageURI string) Document {
	return Document{
		Name:        t.Name,
		Symbol:      t.Symbol,
		Description: t.Description,
		Image:       imageURI,
		Attributes:  []string{},
		Properties: Properties{
			Files:    []File{{Type: t.ContentType(), URI: imageURI}},
			Category: "image",
			Creators: []string{},
		},
		ExternalURL: t.Website,
		Twitter:     t.Twitter,
		Telegram:    t.Telegram,
	}
}

// Uploader pins a token's metadata and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, t Token) (string, error)
}

// PinataUploader pins files with pinFileToIPFS.
type PinataUploader struct {
	endpoint  string
	apiKey    string
	secretKey string
	http      *http.Client
	log       zerolog.Logger
}

// NewPinataUploader reads endpoint and credentials from cfg.Pinata.
func NewPinataUploader(cfg config.Pinata, log zerolog.Logger) *PinataUploader {
	if log.GetLevel() == zerolog.NoLevel {
		log = zerolog.Nop()
	}
	return &PinataUploader{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: 60 * time.Second},
		log:       log.With().Str("component", "pinata").Logger(),
	}
}

// WithHTTPClient replaces the default client.
func (u *PinataUploader) WithHTTPClient(c *http.Client) *PinataUploader {
	u.http = c
	return u
}

// Upload pins the image, then the Metaplex JSON that references it, and
// returns ipfs://<cid> of the JSON.
func (u *PinataUploader) Upload(ctx context.Context, t Token) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if u.apiKey == "" || u.secretKey == "" {
		return "", types.Validation("pinata upload", "pinata api key and secret are required")
	}
	image, err := os.ReadFile(t.FilePath)
	if err != nil {
		return "", types.Validationf("pinata upload", "read image: %v", err)
	}
	imageCID, err := u.pin(ctx, filepath.Base(t.FilePath), t.ContentType(), image)
	if err != nil {
		return "", err
	}
	imageURI := "ipfs://" + imageCID
	u.log.Debug().Str("uri", imageURI).Msg("image pinned")

	doc, err := json.Marshal(NewDocument(t, imageURI))
	if err != nil {
		return "", types.Internal("pinata upload", err)
	}
	docCID, err := u.pin(ctx, "metadata.json", "application/json", doc)
	if err != nil {
		return "", err
	}
	uri := "ipfs://" + docCID
	u.log.Info().Str("uri", uri).Str("symbol", t.Symbol).Msg("metadata pinned")
	return uri, nil
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func (u *PinataUploader) pin(ctx context.Context, name, contentType string, content []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", types.Internal("pin "+name, err)
	}
	if _, err := part.Write(content); err != nil {
		return "", types.Internal("pin "+name, err)
	}
	if err := w.Close(); err != nil {
		return "", types.Internal("pin "+name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", types.Internal("pin "+name, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("pinata_api_key", u.apiKey)
	req.Header.Set("pinata_secret_api_key", u.secretKey)

	resp, err := u.http.Do(req)
	if err != nil {
		return "", types.Transient("pin "+name, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", types.Transient("pin "+name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", types.Transient("pin "+name, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	var out pinResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", types.Internal("pin "+name, fmt.Errorf("decode response: %w", err))
	}
	if out.IpfsHash == "" {
		return "", types.Internal("pin "+name, fmt.Errorf("response has no IpfsHash"))
	}
	return out.IpfsHash, nil
}
