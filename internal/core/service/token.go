package service

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

const (
	// MinSecretLength is the shortest signing secret accepted for HS256.
	MinSecretLength = 32

	// encryptionKeyLength is the A128KW key size taken from the secret prefix.
	encryptionKeyLength = 16

	sharedSecretBytes = 54
)

// Registered JWT claim names. iss, nbf, iat and exp never appear in a
// validated ClaimSet.
var registeredClaims = []string{"iss", "aud", "nbf", "iat", "exp"}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	// Issuer is stamped into every generated token.
	Issuer string

	// Audience is the default audience for generated tokens.
	Audience string

	// Secret is the HS256 signing secret, at least MinSecretLength bytes.
	Secret string

	// ValidIssuers restricts accepted issuers. Empty means no constraint.
	ValidIssuers []string

	// ValidAudiences restricts accepted audiences. Empty means no constraint.
	ValidAudiences []string

	// EncryptClaims wraps generated tokens in a JWE (A128KW, A128CBC-HS256)
	// keyed by the first 16 bytes of Secret.
	EncryptClaims bool
}

// TokenManager generates and validates bearer tokens.
//
// All lifetime stamping and checks go through the supplied clock.
type TokenManager struct {
	issuer         string
	audience       string
	signingKey     []byte
	encryptionKey  []byte
	validIssuers   []string
	validAudiences []string
	clock          clock.Clock
	parser         *jwt.Parser
	encrypter      jose.Encrypter
}

// NewTokenManager validates cfg and creates a TokenManager. A missing or short
// secret is a configuration error.
func NewTokenManager(cfg TokenConfig, clk clock.Clock) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, domain.ErrConfiguration.WithDetails("jwt secret is required")
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, domain.ErrConfiguration.WithDetails(
			fmt.Sprintf("jwt secret must be at least %d bytes, got %d", MinSecretLength, len(cfg.Secret)))
	}
	if cfg.Issuer == "" {
		return nil, domain.ErrConfiguration.WithDetails("jwt issuer is required")
	}
	if cfg.Audience == "" {
		return nil, domain.ErrConfiguration.WithDetails("jwt audience is required")
	}
	if clk == nil {
		clk = clock.System{}
	}

	m := &TokenManager{
		issuer:         cfg.Issuer,
		audience:       cfg.Audience,
		signingKey:     []byte(cfg.Secret),
		validIssuers:   compact(cfg.ValidIssuers),
		validAudiences: compact(cfg.ValidAudiences),
		clock:          clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithJSONNumber(),
		),
	}

	if cfg.EncryptClaims {
		m.encryptionKey = []byte(cfg.Secret)[:encryptionKeyLength]
		enc, err := jose.NewEncrypter(
			jose.A128CBC_HS256,
			jose.Recipient{Algorithm: jose.A128KW, Key: m.encryptionKey},
			(&jose.EncrypterOptions{}).WithType("JWT").WithContentType("JWT"),
		)
		if err != nil {
			return nil, domain.ErrConfiguration.WithDetails("jwe encrypter").WithCause(err)
		}
		m.encrypter = enc
	}

	return m, nil
}

// Audience returns the default audience.
func (m *TokenManager) Audience() string { return m.audience }

// Issuer returns the issuer stamped into generated tokens.
func (m *TokenManager) Issuer() string { return m.issuer }

// Encrypted reports whether generated tokens are JWE envelopes.
func (m *TokenManager) Encrypted() bool { return m.encrypter != nil }

// Generate mints a token carrying claims, valid for d from the clock's now.
// An explicit audience overrides the default one.
func (m *TokenManager) Generate(claims domain.ClaimSet, d time.Duration, audience ...string) (string, error) {
	// 1. Resolve audience
	aud := m.audience
	if len(audience) > 0 && audience[0] != "" {
		aud = audience[0]
	}

	// 2. Dedup by (type, value) and drop the colliding audience claim
	claims = claims.Dedup().Without(domain.ClaimAudience, aud)

	// 3. Stamp lifetime
	now := m.clock.Now()
	payload := &tokenPayload{
		Issuer:    m.issuer,
		Audience:  append(jwt.ClaimStrings{aud}, claims.Values(domain.ClaimAudience)...),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Claims:    claims,
	}

	// 4. Sign
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if m.encrypter == nil {
		return signed, nil
	}

	// 5. Wrap in JWE
	obj, err := m.encrypter.Encrypt([]byte(signed))
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}
	return obj.CompactSerialize()
}

// Validate checks token and returns its identity claims. Any failure reports
// ok=false and no claims.
func (m *TokenManager) Validate(token string) (domain.ClaimSet, bool) {
	claims, err := m.validate(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// ValidateReason checks token and returns a human-readable outcome instead
// of claims. It is meant for operators, never for untrusted clients.
func (m *TokenManager) ValidateReason(token string) (string, bool) {
	if _, err := m.validate(token); err != nil {
		return err.Error(), false
	}
	return "valid", true
}

// ValidateErr checks token and returns a *domain.DomainError on failure.
func (m *TokenManager) ValidateErr(token string) (domain.ClaimSet, error) {
	return m.validate(token)
}

func (m *TokenManager) validate(token string) (domain.ClaimSet, error) {
	// 1. Strip scheme
	raw := StripBearer(token)
	if raw == "" {
		return nil, domain.ErrTokenMalformed.WithDetails("empty token")
	}

	// 2. Decrypt envelope
	if strings.Count(raw, ".") == 4 {
		inner, err := m.decrypt(raw)
		if err != nil {
			return nil, err
		}
		raw = inner
	}

	// 3. Verify signature
	mc := jwt.MapClaims{}
	if _, err := m.parser.ParseWithClaims(raw, mc, func(*jwt.Token) (any, error) {
		return m.signingKey, nil
	}); err != nil {
		return nil, domain.ErrTokenInvalid.WithDetails(err.Error()).WithCause(err)
	}

	// 4. Issuer allow-list
	iss, _ := mc.GetIssuer()
	if len(m.validIssuers) > 0 && !slices.Contains(m.validIssuers, iss) {
		return nil, domain.ErrTokenIssuer.WithDetails(fmt.Sprintf("issuer %q", iss))
	}

	// 5. Audience allow-list
	aud, err := mc.GetAudience()
	if err != nil {
		return nil, domain.ErrTokenMalformed.WithDetails("aud").WithCause(err)
	}
	if len(m.validAudiences) > 0 && !slices.ContainsFunc(aud, func(a string) bool {
		return slices.Contains(m.validAudiences, a)
	}) {
		return nil, domain.ErrTokenAudience.WithDetails(fmt.Sprintf("audience %v", []string(aud)))
	}

	// 6. Lifetime: nbf <= now < exp, a missing bound passes
	if err := m.checkLifetime(mc); err != nil {
		return nil, err
	}

	// 7. Project identity claims in payload order
	body, err := m.parser.DecodeSegment(strings.Split(raw, ".")[1])
	if err != nil {
		return nil, domain.ErrTokenMalformed.WithCause(err)
	}
	var primary string
	if len(aud) > 0 {
		primary = aud[0]
	}
	claims, err := decodeClaims(body, iss, primary)
	if err != nil {
		return nil, domain.ErrTokenMalformed.WithDetails("payload").WithCause(err)
	}
	return claims, nil
}

func (m *TokenManager) decrypt(raw string) (string, error) {
	if m.encryptionKey == nil {
		return "", domain.ErrTokenInvalid.WithDetails("encrypted token but claims encryption is disabled")
	}
	obj, err := jose.ParseEncrypted(raw,
		[]jose.KeyAlgorithm{jose.A128KW},
		[]jose.ContentEncryption{jose.A128CBC_HS256},
	)
	if err != nil {
		return "", domain.ErrTokenMalformed.WithDetails("jwe").WithCause(err)
	}
	inner, err := obj.Decrypt(m.encryptionKey)
	if err != nil {
		return "", domain.ErrTokenInvalid.WithDetails("jwe decrypt failed").WithCause(err)
	}
	return string(inner), nil
}

func (m *TokenManager) checkLifetime(mc jwt.MapClaims) error {
	now := m.clock.Now()

	nbf, err := mc.GetNotBefore()
	if err != nil {
		return domain.ErrTokenMalformed.WithDetails("nbf").WithCause(err)
	}
	if nbf != nil && now.Before(nbf.Time) {
		return domain.ErrTokenNotYetValid.WithDetails(
			fmt.Sprintf("nbf %s is after now %s", nbf.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339)))
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return domain.ErrTokenMalformed.WithDetails("exp").WithCause(err)
	}
	if exp != nil && !now.Before(exp.Time) {
		return domain.ErrTokenExpired.WithDetails(
			fmt.Sprintf("exp %s is not after now %s", exp.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339)))
	}
	return nil
}

// GenerateSharedSecret returns 54 random bytes as a 72-character base64
// string, suitable as a new signing secret.
func GenerateSharedSecret() (string, error) {
	b := make([]byte, sharedSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// StripBearer removes a case-insensitive "Bearer " prefix and surrounding
// whitespace.
func StripBearer(s string) string {
	s = strings.TrimSpace(s)
	const scheme = "bearer "
	if len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
		s = strings.TrimSpace(s[len(scheme):])
	}
	return s
}

// ============================================================================
// Payload encoding
// ============================================================================

// tokenPayload is the JWT body. Identity claims are emitted in order of first
// appearance per type: one value as a scalar, several as an array.
type tokenPayload struct {
	Issuer    string
	Audience  jwt.ClaimStrings
	NotBefore *jwt.NumericDate
	IssuedAt  *jwt.NumericDate
	ExpiresAt *jwt.NumericDate
	Claims    domain.ClaimSet
}

func (p *tokenPayload) GetExpirationTime() (*jwt.NumericDate, error) { return p.ExpiresAt, nil }
func (p *tokenPayload) GetIssuedAt() (*jwt.NumericDate, error)       { return p.IssuedAt, nil }
func (p *tokenPayload) GetNotBefore() (*jwt.NumericDate, error)      { return p.NotBefore, nil }
func (p *tokenPayload) GetIssuer() (string, error)                   { return p.Issuer, nil }
func (p *tokenPayload) GetSubject() (string, error)                  { return "", nil }
func (p *tokenPayload) GetAudience() (jwt.ClaimStrings, error)       { return p.Audience, nil }

// MarshalJSON writes the members in a stable order.
func (p *tokenPayload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	member := func(name string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("claim %q: %w", name, err)
		}
		k, _ := json.Marshal(name)
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}

	if err := member("iss", p.Issuer); err != nil {
		return nil, err
	}
	var aud any = []string(p.Audience)
	if len(p.Audience) == 1 {
		aud = p.Audience[0]
	}
	if err := member("aud", aud); err != nil {
		return nil, err
	}

	var order []string
	grouped := make(map[string][]any)
	for _, c := range p.Claims {
		if slices.Contains(registeredClaims, c.Type) {
			continue
		}
		if _, ok := grouped[c.Type]; !ok {
			order = append(order, c.Type)
		}
		grouped[c.Type] = append(grouped[c.Type], jsonValue(c))
	}
	for _, typ := range order {
		vals := grouped[typ]
		var v any = vals
		if len(vals) == 1 {
			v = vals[0]
		}
		if err := member(typ, v); err != nil {
			return nil, err
		}
	}

	for _, d := range []struct {
		name string
		v    *jwt.NumericDate
	}{{"nbf", p.NotBefore}, {"iat", p.IssuedAt}, {"exp", p.ExpiresAt}} {
		if d.v == nil {
			continue
		}
		if err := member(d.name, d.v); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonValue renders a claim value as its tagged JSON type. A value is only
// emitted natively when decoding it gives back the same text; anything else
// ("007", "+5", "True", a JSON string or array) is emitted as a JSON string
// so the value survives a round trip.
func jsonValue(c domain.Claim) any {
	switch c.Kind() {
	case domain.ValueInteger:
		if n, err := strconv.ParseInt(c.Value, 10, 64); err == nil && strconv.FormatInt(n, 10) == c.Value {
			return json.Number(c.Value)
		}
	case domain.ValueDouble:
		if _, err := strconv.ParseFloat(c.Value, 64); err == nil && json.Valid([]byte(c.Value)) {
			return json.Number(c.Value)
		}
	case domain.ValueBoolean:
		if c.Value == "true" || c.Value == "false" {
			return c.Value == "true"
		}
	case domain.ValueJSON:
		if isCompactObject(c.Value) {
			return json.RawMessage(c.Value)
		}
	}
	return c.Value
}

// isCompactObject reports whether s is a JSON object already in compact form.
func isCompactObject(s string) bool {
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return false
	}
	return buf.String() == s
}

// decodeClaims reads the payload members in order and turns every
// non-registered member into claims stamped with issuer. aud values equal to
// the primary audience are dropped, others are kept.
func decodeClaims(body []byte, issuer, primaryAudience string) (domain.ClaimSet, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("payload is not a JSON object")
	}

	cs := domain.ClaimSet{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if name == "iss" || name == "nbf" || name == "iat" || name == "exp" {
			continue
		}

		var values []json.RawMessage
		if len(raw) > 0 && raw[0] == '[' {
			if err := json.Unmarshal(raw, &values); err != nil {
				return nil, err
			}
		} else {
			values = []json.RawMessage{raw}
		}

		for _, v := range values {
			c, ok := claimFromJSON(name, v)
			if !ok {
				continue
			}
			if name == domain.ClaimAudience && c.Value == primaryAudience {
				continue
			}
			c.Issuer = issuer
			c.OriginalIssuer = issuer
			cs = append(cs, c)
		}
	}
	return cs, nil
}

func claimFromJSON(typ string, raw json.RawMessage) (domain.Claim, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return domain.Claim{}, false
	}

	switch x := v.(type) {
	case nil:
		return domain.Claim{}, false
	case string:
		return domain.Claim{Type: typ, Value: x, ValueType: domain.ValueString}, true
	case bool:
		return domain.Claim{Type: typ, Value: strconv.FormatBool(x), ValueType: domain.ValueBoolean}, true
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return domain.Claim{Type: typ, Value: x.String(), ValueType: domain.ValueInteger}, true
		}
		return domain.Claim{Type: typ, Value: x.String(), ValueType: domain.ValueDouble}, true
	default:
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, raw); err != nil {
			return domain.Claim{}, false
		}
		return domain.Claim{Type: typ, Value: compacted.String(), ValueType: domain.ValueJSON}, true
	}
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
