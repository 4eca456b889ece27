package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
)

// FuzzAuthenticateToken fuzzes JWT parsing to find crashes or panics.
func FuzzAuthenticateToken(f *testing.F) {
	f.Add("")
	f.Add(".")
	f.Add("..")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ0ZXN0In0.signature")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ0ZXN0In0.")

	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user","exp":9999999999}`))
	f.Add("header." + payload + ".sig")

	a, err := NewJWTAuthenticator(JWTConfig{Issuer: testIssuer, SigningKey: []byte(testKey)})
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(_ *testing.T, token string) {
		_, _ = a.Authenticate(WithToken(context.Background(), token))
	})
}

// FuzzClaimPath fuzzes dot-path lookups over arbitrary claim documents.
func FuzzClaimPath(f *testing.F) {
	f.Add(`{}`, "roles")
	f.Add(`{"roles":["admin","user"]}`, "roles")
	f.Add(`{"realm_access":{"roles":["admin"]}}`, "realm_access.roles")
	f.Add(`{"realm_access":"not-an-object"}`, "realm_access.roles")
	f.Add(`{"roles":"not-an-array"}`, "roles")
	f.Add(`null`, "..")

	f.Fuzz(func(_ *testing.T, doc, path string) {
		var claims map[string]any
		if json.Unmarshal([]byte(doc), &claims) != nil {
			return
		}
		_ = claimStrings(claims, path)
		_ = claimString(claims, path)
	})
}
