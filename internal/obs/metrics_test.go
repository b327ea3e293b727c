package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/v1/payruns":                 "/v1/payruns",
		"/v1/payruns/HOF-20260210-120000": "/v1/payruns/:id",
		"/v1/payruns/abc?hard=true":   "/v1/payruns/:id",
		"/v1/payitems/itm-1":          "/v1/payitems/:id",
		"/v1/users/usr-1":             "/v1/users/:id",
		"/v1/users/usr-1/access":      "/v1/users/:id/access",
		"/v1/users/usr-1/extra":       "/v1/users/usr-1/extra",
		"/v1/hrsync/status":           "/v1/hrsync/status",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
