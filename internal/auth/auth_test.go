package auth

import (
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer secret", "secret", false},
		{"trims whitespace", "Bearer  secret ", "secret", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic abc", "", true},
		{"empty token", "Bearer ", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, err := ExtractBearerToken(r)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractBearerToken: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	t.Parallel()

	if ValidateAPIKey("", "key") || ValidateAPIKey("key", "") {
		t.Fatal("empty keys must never validate")
	}
	if ValidateAPIKey("wrong", "right") {
		t.Fatal("mismatched keys must not validate")
	}
	if !ValidateAPIKey("right", "right") {
		t.Fatal("matching keys must validate")
	}
}
