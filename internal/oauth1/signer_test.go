package oauth1

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const (
	testConsumerKey    = "cChZNFj6T5R0TigYB9yd1w"
	testConsumerSecret = "L8qq9PZyRg6ieKGEKhZolGC0vJWLw8iEJ88DRdyOg"
)

func fixedSigner(nonce string, ts int64) *Signer {
	s := NewSigner()
	s.nonce = func() string { return nonce }
	s.now = func() time.Time { return time.Unix(ts, 0) }
	return s
}

func TestSignatureBase_RequestToken(t *testing.T) {
	params := [][2]string{
		{"oauth_callback", "http://localhost:8080/twitter/callback"},
		{"oauth_consumer_key", testConsumerKey},
		{"oauth_nonce", "ea9ec8429b68d6b77cd5600adbbb0456"},
		{"oauth_signature_method", "HMAC-SHA1"},
		{"oauth_timestamp", "1722837764"},
		{"oauth_version", "1.0A"},
	}
	got := signatureBase("POST", "https://api.twitter.com/oauth/request_token", params)
	want := "POST&https%3A%2F%2Fapi.twitter.com%2Foauth%2Frequest_token&" +
		"oauth_callback%3Dhttp%253A%252F%252Flocalhost%253A8080%252Ftwitter%252Fcallback" +
		"%26oauth_consumer_key%3DcChZNFj6T5R0TigYB9yd1w" +
		"%26oauth_nonce%3Dea9ec8429b68d6b77cd5600adbbb0456" +
		"%26oauth_signature_method%3DHMAC-SHA1" +
		"%26oauth_timestamp%3D1722837764" +
		"%26oauth_version%3D1.0A"
	if got != want {
		t.Fatalf("base string mismatch:\n got %s\nwant %s", got, want)
	}
	if sig := sign(got, testConsumerSecret, ""); sig != "5R4rULDaiIU+UiTFvPFnQjoOIyI=" {
		t.Fatalf("signature mismatch: got %s", sig)
	}
}

func TestSign_WithTokenSecret(t *testing.T) {
	params := [][2]string{
		{"oauth_verifier", "847dd5a6bff5ba24"},
		{"oauth_consumer_key", testConsumerKey},
		{"oauth_nonce", "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg"},
		{"oauth_signature_method", "HMAC-SHA1"},
		{"oauth_timestamp", "1318622958"},
		{"oauth_token", "NPcudxy0yU5T3tBzho7iCotZ3cnetKwcTIRlX0iwRl0"},
		{"oauth_version", "1.0A"},
	}
	base := signatureBase("POST", "https://api.twitter.com/oauth/access_token", params)
	sig := sign(base, testConsumerSecret, "veNRnAWe6inFuo8o2u8SLLZLjolYDmDP7SzL0YfYI")
	if sig != "eROYQCOmXCxu1weiDbpe/TT3md0=" {
		t.Fatalf("signature mismatch: got %s", sig)
	}
}

func TestPercentEncode_Strict(t *testing.T) {
	// RFC 3986: sub-delims ! ' ( ) * must be escaped too.
	if got := percentEncode("!'()* ~-._"); got != "%21%27%28%29%2A%20~-._" {
		t.Fatalf("got %q", got)
	}
	if got := percentEncode("Hello Ladies + Gentlemen, a signed OAuth request!"); got !=
		"Hello%20Ladies%20%2B%20Gentlemen%2C%20a%20signed%20OAuth%20request%21" {
		t.Fatalf("got %q", got)
	}
}

func TestPost_SendsSignedForm(t *testing.T) {
	var gotAuth, gotBody, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("oauth_token=abc&oauth_token_secret=def&oauth_callback_confirmed=true"))
	}))
	defer srv.Close()

	s := fixedSigner("ea9ec8429b68d6b77cd5600adbbb0456", 1722837764)
	form := url.Values{"oauth_callback": {"http://localhost:8080/twitter/callback"}}
	nonce, resp, err := s.Post(context.Background(), srv.URL, form, Token{
		ConsumerKey:    testConsumerKey,
		ConsumerSecret: testConsumerSecret,
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if nonce != "ea9ec8429b68d6b77cd5600adbbb0456" {
		t.Fatalf("nonce: %s", nonce)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if gotCT != "application/x-www-form-urlencoded" {
		t.Fatalf("content-type: %s", gotCT)
	}
	if !strings.Contains(gotBody, "oauth_callback=") {
		t.Fatalf("body: %s", gotBody)
	}
	for _, frag := range []string{
		"OAuth ",
		`oauth_consumer_key="cChZNFj6T5R0TigYB9yd1w"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_version="1.0A"`,
		`oauth_signature="`,
	} {
		if !strings.Contains(gotAuth, frag) {
			t.Fatalf("authorization header missing %q: %s", frag, gotAuth)
		}
	}
	if strings.Contains(gotAuth, "oauth_token=") {
		t.Fatalf("empty token must be omitted: %s", gotAuth)
	}
	if !strings.Contains(string(resp.Body), "oauth_callback_confirmed=true") {
		t.Fatalf("body passthrough: %s", resp.Body)
	}
}

func TestDo_BodylessGet(t *testing.T) {
	var gotCT, gotAuth string
	var gotLen int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotLen = r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := fixedSigner("abc123", 1700000000)
	_, resp, err := s.Do(context.Background(), http.MethodGet, srv.URL, nil, Token{
		ConsumerKey:    testConsumerKey,
		ConsumerSecret: testConsumerSecret,
		Token:          "tok",
		TokenSecret:    "sec",
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if gotCT != "" {
		t.Fatalf("bodyless GET carried content-type %q", gotCT)
	}
	if gotLen != 0 {
		t.Fatalf("bodyless GET carried %d body bytes", gotLen)
	}
	if !strings.Contains(gotAuth, `oauth_token="tok"`) {
		t.Fatalf("authorization header: %s", gotAuth)
	}
}

func TestDo_DeterministicSignature(t *testing.T) {
	// Same request, same nonce/timestamp => identical header.
	form := url.Values{"oauth_callback": {"http://localhost:8080/twitter/callback"}}
	tok := Token{ConsumerKey: testConsumerKey, ConsumerSecret: testConsumerSecret}
	s := fixedSigner("abc123", 1700000000)
	h1 := s.authorizationHeader("POST", "https://api.twitter.com/oauth/request_token", form, tok, "abc123", "1700000000")
	h2 := s.authorizationHeader("POST", "https://api.twitter.com/oauth/request_token", form, tok, "abc123", "1700000000")
	if h1 != h2 {
		t.Fatalf("header not deterministic:\n%s\n%s", h1, h2)
	}
}
