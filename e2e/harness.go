// Package e2e drives the black-box suite: Gherkin scenarios executed against
// a running server over plain HTTP. The suite assumes a freshly started dev
// instance (empty stores, default config) reachable at VESTRY_E2E_URL.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// registryAdmin is pinned rather than generated so repeated runs against the
// same server agree on who initialized the registries.
const (
	registryAdmin = "GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ"
	vestingToken  = "CA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVCCC"
)

const addrBody = "QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74"

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// TestContext carries state between steps: the HTTP client, the principals
// minted for named actors, and the last response.
type TestContext struct {
	baseURL string
	client  *http.Client

	signingKey []byte
	issuer     string
	audience   string

	// Named actors get fresh addresses per run so reruns never collide with
	// records a previous suite registered.
	principals map[string]string
	runNonce   string

	lastStatus int
	lastBody   []byte
	lastHeader http.Header
}

// NewTestContext builds a context for the server at baseURL. Proof signing
// parameters default to the server's dev configuration and can be overridden
// through the VESTRY_E2E_* variables.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
		signingKey: []byte(envOr("VESTRY_E2E_SIGNING_KEY", "dev-secret-key-change-in-production")),
		issuer:     envOr("VESTRY_E2E_PROOF_ISSUER", "vestry"),
		audience:   envOr("VESTRY_E2E_PROOF_AUDIENCE", "vestry"),
		principals: map[string]string{},
		runNonce:   encode32(int(time.Now().UnixNano()%(32*32*32*32*32)), 5),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// encode32 renders n as width base32 characters, the alphabet addresses use.
func encode32(n, width int) string {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = base32Alphabet[n%32]
		n /= 32
	}
	return string(out)
}

// PrincipalFor returns the address for a named actor, minting a run-unique
// one on first use. "admin" is pinned across runs.
func (tc *TestContext) PrincipalFor(name string) string {
	if name == "admin" {
		return registryAdmin
	}
	if addr, ok := tc.principals[name]; ok {
		return addr
	}
	addr := "G" + tc.runNonce + addrBody + encode32(len(tc.principals)+1, 5)
	tc.principals[name] = addr
	return addr
}

// TokenAsset returns the asset address the vesting wallet is initialized with.
func (tc *TestContext) TokenAsset() string {
	return vestingToken
}

// ProofFor mints an authorization proof binding the named actor, signed the
// way the wallet gateway signs real ones.
func (tc *TestContext) ProofFor(name string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   tc.PrincipalFor(name),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tc.issuer,
		Audience:  []string{tc.audience},
	})
	return token.SignedString(tc.signingKey)
}

// Request performs an HTTP call and records the response. An empty proofName
// sends the request anonymously.
func (tc *TestContext) Request(method, path string, body any, proofName string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if proofName != "" {
		proof, err := tc.ProofFor(proofName)
		if err != nil {
			return fmt.Errorf("mint proof for %s: %w", proofName, err)
		}
		req.Header.Set("Authorization", "Bearer "+proof)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

// LastStatus returns the status code of the most recent response.
func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

// ResponseHeader returns a header from the most recent response.
func (tc *TestContext) ResponseHeader(name string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(name)
}

// ResponseField decodes the most recent response as a JSON object and returns
// the named field.
func (tc *TestContext) ResponseField(name string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(tc.lastBody, &payload); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (body %q)", err, tc.lastBody)
	}
	value, ok := payload[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q (body %s)", name, tc.lastBody)
	}
	return value, nil
}
