package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/pkg/httpx"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(r *http.Request)
		target string
		want   string
	}{
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, "/", "abc"},
		{"scheme case", func(r *http.Request) { r.Header.Set("Authorization", "bearer abc") }, "/", "abc"},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, "/", ""},
		{"none", func(*http.Request) {}, "/", ""},
		{"query ignored without upgrade", func(*http.Request) {}, "/?access_token=abc", ""},
		{"websocket query", func(r *http.Request) {
			r.Header.Set("Upgrade", "websocket")
			r.Header.Set("Connection", "keep-alive, Upgrade")
		}, "/?access_token=abc", "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			tc.setup(req)
			require.Equal(t, tc.want, httpx.BearerToken(req))
		})
	}
}

type stubValidator map[string]domain.Principal

func (s stubValidator) ValidateRequest(_ context.Context, token string) (domain.Principal, error) {
	p, ok := s[token]
	if !ok {
		return domain.Principal{}, errors.New("nope")
	}
	return p, nil
}

func TestAuthnAndRequireRole(t *testing.T) {
	v := stubValidator{
		"host-token":  {Subject: "hana", Role: domain.RoleHost},
		"admin-token": {Subject: "root", Role: domain.RoleAdmin},
	}

	var seen domain.Principal
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.PrincipalFromContext(r.Context())
		require.NotEmpty(t, httpx.TokenFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
	h := httpx.Chain(inner, httpx.AuthnMiddleware(v, nil), httpx.RequireRole(domain.RoleHost))

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	require.Equal(t, http.StatusUnauthorized, do("bogus").Code)

	rec = do("host-token")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "hana", seen.Subject)

	require.Equal(t, http.StatusNoContent, do("admin-token").Code)

	guestOnly := httpx.Chain(inner, httpx.AuthnMiddleware(v, nil), httpx.RequireRole(domain.RoleAdmin))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer host-token")
	rec = httptest.NewRecorder()
	guestOnly.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "forbidden", body.Error)
}

func TestAuthn_CustomErrorWriter(t *testing.T) {
	var got error
	h := httpx.AuthnMiddleware(stubValidator{}, func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	})(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Error(t, got)
}

func TestRequireRole_WithoutAuthn(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.RequireRole(domain.RoleGuest)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORS(t *testing.T) {
	h := httpx.CORS([]string{"https://app.roomstay.test"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.roomstay.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "https://app.roomstay.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOrigins(t *testing.T) {
	h := httpx.CORS(nil)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Origin", "https://anywhere.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type loginBody struct {
	Identifier string `json:"identifier" validate:"required"`
	Code       string `json:"code" validate:"omitempty,code"`
	Email      string `json:"email" validate:"omitempty,email"`
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string) (loginBody, error) {
		var dst loginBody
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		err := httpx.DecodeJSON(httptest.NewRecorder(), req, &dst)
		return dst, err
	}

	got, err := decode(`{"identifier":"alice","code":"012345"}`)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Identifier)

	_, err = decode(`{"identifier":"alice","extra":1}`)
	require.ErrorIs(t, err, httpx.ErrBadJSON)

	_, err = decode(`{"identifier":"alice"} {}`)
	require.ErrorIs(t, err, httpx.ErrBadJSON)

	_, err = decode(`{"code":"12ab56","email":"nope"}`)
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, map[string]string{
		"identifier": "required",
		"code":       "code",
		"email":      "email",
	}, verr.Fields)
	require.Equal(t, "invalid fields: code: code, email: email, identifier: required", verr.Error())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteError(rec, http.StatusBadRequest, "invalid_request", "bad")
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"error":"invalid_request","error_description":"bad"}`, rec.Body.String())
}
