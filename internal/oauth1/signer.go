// Package oauth1 implements OAuth 1.0a request signing (HMAC-SHA1, RFC
// 5849) for providers that never moved to OAuth 2.0. The signer knows
// nothing about flows: it signs a single form-encoded HTTP request and
// hands back the raw provider response.
package oauth1

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Token carries the credential pair(s) a request is signed with. Token and
// TokenSecret are empty for the request-token step of the three-legged flow.
type Token struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
}

// Response is the raw provider reply. The signer does not interpret
// provider errors; callers decide what a non-2xx status means.
type Response struct {
	StatusCode int
	Body       []byte
}

// Signer signs and issues OAuth 1.0a requests.
type Signer struct {
	http *http.Client

	// Overridable for deterministic tests.
	nonce func() string
	now   func() time.Time
}

// NewSigner creates a signer with a 10 second HTTP timeout.
func NewSigner() *Signer {
	return &Signer{
		http:  &http.Client{Timeout: 10 * time.Second},
		nonce: newNonce,
		now:   time.Now,
	}
}

// Do signs the request with a fresh per-request nonce and issues it. The
// nonce is returned so flows can correlate it with their pending state.
func (s *Signer) Do(ctx context.Context, method, rawURL string, form url.Values, tok Token) (string, *Response, error) {
	nonce := s.nonce()
	ts := strconv.FormatInt(s.now().Unix(), 10)

	header := s.authorizationHeader(method, rawURL, form, tok, nonce, ts)

	var body io.Reader
	if len(form) > 0 {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return "", nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Authorization", header)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	return nonce, &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Post is Do with method POST, the only method the token endpoints use.
func (s *Signer) Post(ctx context.Context, rawURL string, form url.Values, tok Token) (string, *Response, error) {
	return s.Do(ctx, http.MethodPost, rawURL, form, tok)
}

// authorizationHeader builds the `Authorization: OAuth ...` header value
// for the given request.
func (s *Signer) authorizationHeader(method, rawURL string, form url.Values, tok Token, nonce, timestamp string) string {
	oauth := map[string]string{
		"oauth_consumer_key":     tok.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        timestamp,
		"oauth_version":          "1.0A",
	}
	if tok.Token != "" {
		oauth["oauth_token"] = tok.Token
	}

	params := make([][2]string, 0, len(form)+len(oauth))
	for k, vs := range form {
		for _, v := range vs {
			params = append(params, [2]string{k, v})
		}
	}
	for k, v := range oauth {
		params = append(params, [2]string{k, v})
	}

	base := signatureBase(method, rawURL, params)
	oauth["oauth_signature"] = sign(base, tok.ConsumerSecret, tok.TokenSecret)

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%q", percentEncode(k), percentEncode(oauth[k]))
	}
	return b.String()
}

// signatureBase builds the RFC 5849 signature base string:
// METHOD&enc(url)&enc(sorted-param-string). Parameters are each
// percent-encoded, then sorted byte-lexicographically by key with ties
// broken by value.
func signatureBase(method, rawURL string, params [][2]string) string {
	enc := make([][2]string, len(params))
	for i, p := range params {
		enc[i] = [2]string{percentEncode(p[0]), percentEncode(p[1])}
	}
	sort.Slice(enc, func(i, j int) bool {
		if enc[i][0] != enc[j][0] {
			return enc[i][0] < enc[j][0]
		}
		return enc[i][1] < enc[j][1]
	})

	pairs := make([]string, len(enc))
	for i, p := range enc {
		pairs[i] = p[0] + "=" + p[1]
	}

	return strings.ToUpper(method) + "&" +
		percentEncode(baseURL(rawURL)) + "&" +
		percentEncode(strings.Join(pairs, "&"))
}

// sign computes base64(HMAC-SHA1(key, base)) with the RFC 5849 key
// enc(consumerSecret)&enc(tokenSecret).
func sign(base, consumerSecret, tokenSecret string) string {
	key := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// baseURL strips the query and fragment; the requests the broker signs
// carry all their parameters in the body.
func baseURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// percentEncode implements the strict RFC 3986 encoding OAuth requires:
// everything but unreserved characters is escaped, including the
// sub-delims ! ' ( ) * that net/url leaves alone.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
