// Package travis implements the BuildVerifier port. Travis signs each webhook
// delivery with its private key; the matching public key is published by the
// Travis API /config endpoint.
package travis

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BuildVerifier = (*Verifier)(nil)

// Verifier checks webhook payload signatures against the Travis public key.
// The key is fetched once and cached; if verification fails with a cached key
// it is refetched once, which covers key rotation on the Travis side.
type Verifier struct {
	apiURL string
	client *http.Client

	mu  sync.Mutex
	key *rsa.PublicKey
}

// NewVerifier creates a Verifier against the given Travis API base URL.
func NewVerifier(apiURL string) *Verifier {
	return &Verifier{
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify checks the base64 RSA SHA-1 signature from the Signature header
// against the raw payload. Signatures are SHA-1 because that is what Travis
// produces; the key fetch, not the digest, is the trust anchor here.
func (v *Verifier) Verify(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		return &driven.VerificationError{
			Status:  http.StatusUnauthorized,
			Message: "missing Signature header",
		}
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return &driven.VerificationError{
			Status:  http.StatusUnauthorized,
			Message: "signature is not valid base64",
		}
	}

	digest := sha1.Sum(payload)

	key, err := v.publicKey(ctx, false)
	if err != nil {
		return err
	}

	if rsa.VerifyPKCS1v15(key, crypto.SHA1, digest[:], sig) == nil {
		return nil
	}

	// The key may have rotated since it was cached; refetch once and retry.
	key, err = v.publicKey(ctx, true)
	if err != nil {
		return err
	}
	if rsa.VerifyPKCS1v15(key, crypto.SHA1, digest[:], sig) == nil {
		return nil
	}

	return &driven.VerificationError{
		Status:  http.StatusUnauthorized,
		Message: "payload signature does not match",
	}
}

func (v *Verifier) publicKey(ctx context.Context, refresh bool) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.key != nil && !refresh {
		return v.key, nil
	}

	key, err := v.fetchPublicKey(ctx)
	if err != nil {
		return nil, &driven.VerificationError{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("fetching Travis public key: %v", err),
		}
	}

	v.key = key
	return key, nil
}

func (v *Verifier) fetchPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.apiURL+"/config", nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var config struct {
		Config struct {
			Notifications struct {
				Webhook struct {
					PublicKey string `json:"public_key"`
				} `json:"webhook"`
			} `json:"notifications"`
		} `json:"config"`
	}
	if err := json.Unmarshal(body, &config); err != nil {
		return nil, fmt.Errorf("decode config response: %w", err)
	}

	return parsePublicKey(config.Config.Notifications.Webhook.PublicKey)
}

func parsePublicKey(pemKey string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, fmt.Errorf("config response carries no PEM public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, expected RSA", parsed)
	}

	return key, nil
}
