package service

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

const testSecret = "0123456789abcdef0123456789abcdef-test-secret"

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestTokenManager(t *testing.T, mutate func(*TokenConfig)) (*TokenManager, *clock.Spoofable) {
	t.Helper()
	cfg := TokenConfig{
		Issuer:   "https://auth.example",
		Audience: "api",
		Secret:   testSecret,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	clk := clock.NewSpoofable(clock.Fixed(testEpoch))
	m, err := NewTokenManager(cfg, clk)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return m, clk
}

// tuples renders claims as sorted "type=value:kind" strings.
func tuples(cs domain.ClaimSet) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Type+"="+c.Value+":"+c.Kind())
	}
	sort.Strings(out)
	return out
}

func signRaw(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestNewTokenManager_Config(t *testing.T) {
	tests := []struct {
		name string
		cfg  TokenConfig
	}{
		{"missing secret", TokenConfig{Issuer: "i", Audience: "a"}},
		{"short secret", TokenConfig{Issuer: "i", Audience: "a", Secret: strings.Repeat("x", 31)}},
		{"missing issuer", TokenConfig{Audience: "a", Secret: testSecret}},
		{"missing audience", TokenConfig{Issuer: "i", Secret: testSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenManager(tt.cfg, nil)
			if !domain.IsDomainError(err, domain.ErrConfiguration.Code) {
				t.Errorf("NewTokenManager() error = %v, want configuration error", err)
			}
		})
	}

	if _, err := NewTokenManager(TokenConfig{Issuer: "i", Audience: "a", Secret: strings.Repeat("x", 32)}, nil); err != nil {
		t.Errorf("32-byte secret should be accepted: %v", err)
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	claims := domain.ClaimSet{
		domain.NewClaim(domain.ClaimAudience, "reports"),
		domain.NewClaim(domain.ClaimName, "ada"),
		domain.NewClaim(domain.ClaimRole, "Developer"),
		domain.NewClaim(domain.ClaimRole, "Admin"),
		{Type: "age", Value: "42", ValueType: domain.ValueInteger},
		{Type: "ratio", Value: "0.75", ValueType: domain.ValueDouble},
		{Type: "verified", Value: "true", ValueType: domain.ValueBoolean},
		{Type: "address", Value: `{"city":"Oslo"}`, ValueType: domain.ValueJSON},
	}

	for _, encrypt := range []bool{false, true} {
		name := "signed"
		if encrypt {
			name = "encrypted"
		}
		t.Run(name, func(t *testing.T) {
			m, _ := newTestTokenManager(t, func(c *TokenConfig) { c.EncryptClaims = encrypt })

			tok, err := m.Generate(claims, time.Minute)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			wantSegments := 3
			if encrypt {
				wantSegments = 5
			}
			if got := len(strings.Split(tok, ".")); got != wantSegments {
				t.Errorf("token has %d segments, want %d", got, wantSegments)
			}

			got, ok := m.Validate(tok)
			if !ok {
				reason, _ := m.ValidateReason(tok)
				t.Fatalf("Validate() failed: %s", reason)
			}
			if g, w := strings.Join(tuples(got), " "), strings.Join(tuples(claims), " "); g != w {
				t.Errorf("claims = %s\nwant     %s", g, w)
			}
			for _, c := range got {
				if c.Issuer != "https://auth.example" || c.OriginalIssuer != "https://auth.example" {
					t.Errorf("claim %s issuer = %q/%q", c.Type, c.Issuer, c.OriginalIssuer)
				}
			}
		})
	}
}

func TestTokenManager_NonCanonicalValues(t *testing.T) {
	m, _ := newTestTokenManager(t, nil)

	// Values whose text would change, or fail to encode, as native JSON
	// travel as strings: the (type, value) pairs must come back unchanged.
	claims := domain.ClaimSet{
		{Type: "age", Value: "007", ValueType: domain.ValueInteger},
		{Type: "delta", Value: "+5", ValueType: domain.ValueInteger},
		{Type: "big", Value: "99999999999999999999", ValueType: domain.ValueInteger},
		{Type: "verified", Value: "True", ValueType: domain.ValueBoolean},
		{Type: "groups", Value: `["a","b"]`, ValueType: domain.ValueJSON},
		{Type: "tag", Value: `"x"`, ValueType: domain.ValueJSON},
		{Type: "count", Value: `5`, ValueType: domain.ValueJSON},
		{Type: "spaced", Value: `{ "a": 1 }`, ValueType: domain.ValueJSON},
		{Type: "broken", Value: `{"a":`, ValueType: domain.ValueJSON},
	}

	tok, err := m.Generate(claims, time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got, ok := m.Validate(tok)
	if !ok {
		reason, _ := m.ValidateReason(tok)
		t.Fatalf("Validate() failed: %s", reason)
	}
	if len(got) != len(claims) {
		t.Fatalf("got %d claims, want %d: %v", len(got), len(claims), tuples(got))
	}
	for _, c := range claims {
		if !got.Has(c.Type, c.Value) {
			t.Errorf("claim %s=%s lost, got %v", c.Type, c.Value, tuples(got))
		}
	}
}

func TestTokenManager_PreservesOrderWithinType(t *testing.T) {
	m, _ := newTestTokenManager(t, nil)
	claims := domain.ClaimSet{
		domain.NewClaim(domain.ClaimName, "ada"),
		domain.NewClaim(domain.ClaimRole, "b"),
		domain.NewClaim(domain.ClaimRole, "a"),
	}

	tok, _ := m.Generate(claims, time.Minute)
	got, ok := m.Validate(tok)
	if !ok {
		t.Fatal("Validate() failed")
	}
	if len(got) != 3 || got[0].Value != "ada" || got[1].Value != "b" || got[2].Value != "a" {
		t.Errorf("claims = %v", got)
	}
}

func TestTokenManager_DedupAndAudience(t *testing.T) {
	m, _ := newTestTokenManager(t, nil)
	claims := domain.ClaimSet{
		domain.NewClaim(domain.ClaimRole, "Developer"),
		domain.NewClaim(domain.ClaimRole, "Developer"),
		domain.NewClaim(domain.ClaimAudience, "api"),
		domain.NewClaim(domain.ClaimAudience, "mobile"),
	}

	t.Run("default audience", func(t *testing.T) {
		tok, _ := m.Generate(claims, time.Minute)
		got, ok := m.Validate(tok)
		if !ok {
			t.Fatal("Validate() failed")
		}
		want := []string{"aud=mobile:string", "role=Developer:string"}
		if g := tuples(got); strings.Join(g, ",") != strings.Join(want, ",") {
			t.Errorf("claims = %v, want %v", g, want)
		}
	})

	t.Run("explicit audience", func(t *testing.T) {
		tok, _ := m.Generate(claims, time.Minute, "mobile")
		got, ok := m.Validate(tok)
		if !ok {
			t.Fatal("Validate() failed")
		}
		want := []string{"aud=api:string", "role=Developer:string"}
		if g := tuples(got); strings.Join(g, ",") != strings.Join(want, ",") {
			t.Errorf("claims = %v, want %v", g, want)
		}
	})
}

func TestTokenManager_WrongKey(t *testing.T) {
	m, _ := newTestTokenManager(t, nil)
	other, _ := newTestTokenManager(t, func(c *TokenConfig) { c.Secret = strings.Repeat("k", 40) })

	tok, _ := other.Generate(domain.ClaimSet{domain.NewClaim("role", "x")}, time.Minute)
	if _, ok := m.Validate(tok); ok {
		t.Error("token signed with another key should not validate")
	}

	// Tampered payload
	good, _ := m.Generate(domain.ClaimSet{domain.NewClaim("role", "x")}, time.Minute)
	parts := strings.Split(good, ".")
	forged, _ := other.Generate(domain.ClaimSet{domain.NewClaim("role", "admin")}, time.Minute)
	parts[1] = strings.Split(forged, ".")[1]
	if _, ok := m.Validate(strings.Join(parts, ".")); ok {
		t.Error("token with swapped payload should not validate")
	}
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	m, _ := newTestTokenManager(t, nil)

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"role": "x"}).SignedString([]byte(testSecret))
	if _, ok := m.Validate(hs512); ok {
		t.Error("HS512 token should be rejected")
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, ok := m.Validate(none); ok {
		t.Error("alg=none token should be rejected")
	}
}

func TestTokenManager_ClockControl(t *testing.T) {
	m, clk := newTestTokenManager(t, nil)
	tok, _ := m.Generate(domain.ClaimSet{domain.NewClaim("role", "x")}, 30*time.Second)

	if _, ok := m.Validate(tok); !ok {
		t.Fatal("fresh token should validate")
	}

	clk.Spoof(29 * time.Second)
	if _, ok := m.Validate(tok); !ok {
		t.Error("token should validate just before expiry")
	}

	clk.Spoof(30 * time.Second)
	if reason, ok := m.ValidateReason(tok); ok || !strings.Contains(reason, "expired") {
		t.Errorf("at exp ValidateReason() = %q, %v", reason, ok)
	}

	clk.Reset()
	if _, ok := m.Validate(tok); !ok {
		t.Error("Reset() should restore validity")
	}
	clk.Reset()
	if _, ok := m.Validate(tok); !ok {
		t.Error("Reset() should be idempotent")
	}
}

func TestTokenManager_NotBefore(t *testing.T) {
	m, clk := newTestTokenManager(t, nil)
	nbf := testEpoch.Add(time.Hour)
	tok := signRaw(t, testSecret, jwt.MapClaims{
		"iss":  "https://auth.example",
		"aud":  "api",
		"nbf":  nbf.Unix(),
		"exp":  nbf.Add(time.Hour).Unix(),
		"role": "x",
	})

	if reason, ok := m.ValidateReason(tok); ok || !strings.Contains(reason, "not yet valid") {
		t.Errorf("ValidateReason() = %q, %v", reason, ok)
	}

	clk.SpoofAt(nbf.Add(-time.Second))
	if _, ok := m.Validate(tok); ok {
		t.Error("token should not validate one second before nbf")
	}

	clk.SpoofAt(nbf)
	if _, ok := m.Validate(tok); !ok {
		t.Error("token should validate once the clock reaches nbf")
	}
}

func TestTokenManager_MissingLifetimeClaims(t *testing.T) {
	m, clk := newTestTokenManager(t, nil)
	tok := signRaw(t, testSecret, jwt.MapClaims{"iss": "https://auth.example", "role": "minimal"})

	clk.Spoof(100 * 365 * 24 * time.Hour)
	got, ok := m.Validate(tok)
	if !ok {
		t.Fatal("token without nbf/exp should validate")
	}
	if v, _ := got.First("role"); v != "minimal" {
		t.Errorf("role = %q", v)
	}
}

func TestTokenManager_AllowLists(t *testing.T) {
	issuer := signRaw(t, testSecret, jwt.MapClaims{"iss": "https://other", "aud": "api"})
	audience := signRaw(t, testSecret, jwt.MapClaims{"iss": "https://auth.example", "aud": []string{"a", "b"}})
	bare := signRaw(t, testSecret, jwt.MapClaims{"role": "x"})

	tests := []struct {
		name   string
		mutate func(*TokenConfig)
		token  string
		want   bool
	}{
		{"no issuer list accepts any issuer", nil, issuer, true},
		{"issuer not listed", func(c *TokenConfig) { c.ValidIssuers = []string{"https://auth.example"} }, issuer, false},
		{"issuer listed", func(c *TokenConfig) { c.ValidIssuers = []string{" https://other "} }, issuer, true},
		{"missing issuer with list", func(c *TokenConfig) { c.ValidIssuers = []string{"https://auth.example"} }, bare, false},
		{"audience not listed", func(c *TokenConfig) { c.ValidAudiences = []string{"api"} }, audience, false},
		{"one audience listed", func(c *TokenConfig) { c.ValidAudiences = []string{"api", "b"} }, audience, true},
		{"blank list entries ignored", func(c *TokenConfig) { c.ValidAudiences = []string{"", " "} }, audience, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestTokenManager(t, tt.mutate)
			if _, ok := m.Validate(tt.token); ok != tt.want {
				reason, _ := m.ValidateReason(tt.token)
				t.Errorf("Validate() = %v, want %v (%s)", ok, tt.want, reason)
			}
		})
	}
}

func TestTokenManager_Encryption(t *testing.T) {
	enc, _ := newTestTokenManager(t, func(c *TokenConfig) { c.EncryptClaims = true })
	plain, _ := newTestTokenManager(t, nil)
	claims := domain.ClaimSet{domain.NewClaim("role", "x")}

	sealed, _ := enc.Generate(claims, time.Minute)
	if _, ok := plain.Validate(sealed); ok {
		t.Error("encrypted token should not validate without claims encryption")
	}

	signed, _ := plain.Generate(claims, time.Minute)
	if _, ok := enc.Validate(signed); !ok {
		t.Error("signed-only token should still validate with claims encryption enabled")
	}

	parts := strings.Split(sealed, ".")
	parts[3] = strings.Repeat("A", len(parts[3]))
	if _, ok := enc.Validate(strings.Join(parts, ".")); ok {
		t.Error("tampered JWE should not validate")
	}
}

func TestTokenManager_BearerPrefix(t *testing.T) {
	m, _ := newTestTokenManager(t, nil)
	tok, _ := m.Generate(domain.ClaimSet{domain.NewClaim("role", "x")}, time.Minute)

	for _, in := range []string{tok, "Bearer " + tok, "bearer " + tok, "  BEARER   " + tok + " \t"} {
		if _, ok := m.Validate(in); !ok {
			t.Errorf("Validate(%q) failed", in[:12])
		}
	}
	for _, in := range []string{"", "Bearer ", "not.a.token", "Bearer" + tok} {
		if _, ok := m.Validate(in); ok {
			t.Errorf("Validate(%q) should fail", in)
		}
	}
}

func TestGenerateSharedSecret(t *testing.T) {
	a, err := GenerateSharedSecret()
	if err != nil {
		t.Fatalf("GenerateSharedSecret() error = %v", err)
	}
	b, _ := GenerateSharedSecret()

	if len(a) != 72 {
		t.Errorf("len = %d, want 72", len(a))
	}
	if a == b {
		t.Error("secrets should differ")
	}
	if _, err := NewTokenManager(TokenConfig{Issuer: "i", Audience: "a", Secret: a}, nil); err != nil {
		t.Errorf("generated secret should be accepted: %v", err)
	}
}
