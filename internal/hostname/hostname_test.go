package hostname

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtract(t *testing.T) {
	testCases := []struct {
		name      string
		host      string
		forwarded string
		alt       http.Header
		want      string
		ok        bool
	}{
		{"host only", "shop.example.com", "", nil, "shop.example.com", true},
		{"strip port", "shop.example.com:3000", "", nil, "shop.example.com", true},
		{"forwarded wins", "internal:8080", "Brand.Example.com", nil, "Brand.Example.com", true},
		{"forwarded chain", "internal", "a.example.com, proxy.local", nil, "a.example.com", true},
		{"forwarded blank falls back to host", "shop.example.com", "  ", nil, "shop.example.com", true},
		{"ipv6 with port", "[::1]:8080", "", nil, "::1", true},
		{"ipv6 without port", "[::1]", "", nil, "::1", true},
		{"empty brackets kept", "[]", "", nil, "[]", true},
		{"alternate forwarded", "", "", http.Header{"X-Forwarded-Host": {"edge.example.com:443"}}, "edge.example.com", true},
		{"alternate host", "", "", http.Header{"Host": {"alt.example.com"}}, "alt.example.com", true},
		{"alternate original", "", "", http.Header{"X-Original-Host": {"orig.example.com"}}, "orig.example.com", true},
		{"nothing", "", "", nil, "", false},
		{"empty alternate", "", "", http.Header{}, "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var alt HeaderSource
			if tc.alt != nil {
				alt = tc.alt
			}
			got, ok := Extract(tc.host, tc.forwarded, alt)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Extract = %q, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://origin.internal:8080/", nil)
	r.Header.Set("X-Forwarded-Host", "Acme.Example.com")
	got, ok := FromRequest(r)
	if !ok || got != "Acme.Example.com" {
		t.Errorf("FromRequest = %q, %v; want Acme.Example.com, true", got, ok)
	}

	r = httptest.NewRequest(http.MethodGet, "http://origin.internal:8080/", nil)
	got, ok = FromRequest(r)
	if !ok || got != "origin.internal" {
		t.Errorf("FromRequest = %q, %v; want origin.internal, true", got, ok)
	}

	if _, ok := FromRequest(nil); ok {
		t.Error("FromRequest(nil) should report no host")
	}
}
