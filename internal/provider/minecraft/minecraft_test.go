package minecraft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pronounhub/pronounhub/internal/codes"
	"github.com/pronounhub/pronounhub/internal/provider"
)

func testAdapter(xbl, xsts, login, profile string) *Adapter {
	a := New("client-id", "client-secret")
	a.XBLAuthEndpoint = xbl
	a.XSTSAuthEndpoint = xsts
	a.MCLoginEndpoint = login
	a.MCProfileEndpoint = profile
	return a
}

func xblHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Properties struct {
				RpsTicket string `json:"RpsTicket"`
			} `json:"Properties"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("xbl request body: %v", err)
		}
		if in.Properties.RpsTicket != "d=ms-access-token" {
			t.Errorf("RpsTicket = %q", in.Properties.RpsTicket)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"Token": "xbl-token",
			"DisplayClaims": map[string]any{
				"xui": []map[string]string{{"uhs": "user-hash"}},
			},
		})
	}
}

func TestGetSelf_FullChain(t *testing.T) {
	xbl := httptest.NewServer(xblHandler(t))
	defer xbl.Close()

	xsts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Properties struct {
				UserTokens []string `json:"UserTokens"`
			} `json:"Properties"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		if len(in.Properties.UserTokens) != 1 || in.Properties.UserTokens[0] != "xbl-token" {
			t.Errorf("UserTokens = %v", in.Properties.UserTokens)
		}
		json.NewEncoder(w).Encode(map[string]any{"Token": "xsts-token"})
	}))
	defer xsts.Close()

	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			IdentityToken string `json:"identityToken"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		if in.IdentityToken != "XBL3.0 x=user-hash;xsts-token" {
			t.Errorf("identityToken = %q", in.IdentityToken)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "mc-token"})
	}))
	defer login.Close()

	profile := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer mc-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":   "069a79f444e94726a5befca90e38aaf5",
			"name": "Notch",
		})
	}))
	defer profile.Close()

	a := testAdapter(xbl.URL, xsts.URL, login.URL, profile.URL)
	ident, err := a.GetSelf(context.Background(), provider.Credentials{AccessToken: "ms-access-token"})
	if err != nil {
		t.Fatalf("GetSelf: %v", err)
	}
	if ident.ID != "069a79f4-44e9-4726-a5be-fca90e38aaf5" {
		t.Fatalf("ID = %q, want dashed uuid", ident.ID)
	}
	if ident.Name != "Notch" || ident.Platform != "minecraft" {
		t.Fatalf("identity = %+v", ident)
	}
}

func TestGetSelf_XSTSDenials(t *testing.T) {
	cases := []struct {
		xerr int64
		code string
	}{
		{2148916233, codes.XboxNoAccount},
		{2148916235, codes.XboxRegion},
		{2148916238, codes.XboxChildAccount},
	}
	for _, tc := range cases {
		xbl := httptest.NewServer(xblHandler(t))
		xsts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]int64{"XErr": tc.xerr})
		}))

		a := testAdapter(xbl.URL, xsts.URL, "http://invalid", "http://invalid")
		_, err := a.GetSelf(context.Background(), provider.Credentials{AccessToken: "ms-access-token"})
		if !codes.Is(err, tc.code) {
			t.Errorf("xerr %d: err = %v, want code %s", tc.xerr, err, tc.code)
		}
		xsts.Close()
		xbl.Close()
	}
}

func TestGetSelf_NoLicense(t *testing.T) {
	xbl := httptest.NewServer(xblHandler(t))
	defer xbl.Close()
	xsts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"Token": "xsts-token"})
	}))
	defer xsts.Close()
	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "mc-token"})
	}))
	defer login.Close()
	profile := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer profile.Close()

	a := testAdapter(xbl.URL, xsts.URL, login.URL, profile.URL)
	_, err := a.GetSelf(context.Background(), provider.Credentials{AccessToken: "ms-access-token"})
	if !codes.Is(err, codes.XboxNoMCLicense) {
		t.Fatalf("err = %v, want code %s", err, codes.XboxNoMCLicense)
	}
}

func TestDashifyUUID(t *testing.T) {
	if got := dashifyUUID("069a79f444e94726a5befca90e38aaf5"); got != "069a79f4-44e9-4726-a5be-fca90e38aaf5" {
		t.Fatalf("dashifyUUID = %q", got)
	}
	// Already dashed or unexpected length passes through.
	if got := dashifyUUID("069a79f4-44e9-4726-a5be-fca90e38aaf5"); got != "069a79f4-44e9-4726-a5be-fca90e38aaf5" {
		t.Fatalf("dashifyUUID(dashed) = %q", got)
	}
	if got := dashifyUUID("short"); got != "short" {
		t.Fatalf("dashifyUUID(short) = %q", got)
	}
}
