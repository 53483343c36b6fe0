package domain

// Well-known claim types.
const (
	ClaimName     = "name"
	ClaimRole     = "role"
	ClaimAudience = "aud"
)

// Claim value types. They select the JSON type a claim takes in a token payload.
const (
	ValueString  = "string"
	ValueInteger = "integer"
	ValueBoolean = "boolean"
	ValueDouble  = "double"
	ValueJSON    = "json"
)

// Claim is a typed identity assertion. Value is always kept in text form;
// ValueType says how it is rendered in a token.
type Claim struct {
	Type           string `json:"type"`
	Value          string `json:"value"`
	ValueType      string `json:"valueType,omitempty"`
	Issuer         string `json:"issuer,omitempty"`
	OriginalIssuer string `json:"originalIssuer,omitempty"`
}

// NewClaim creates a string-valued claim.
func NewClaim(typ, value string) Claim {
	return Claim{Type: typ, Value: value, ValueType: ValueString}
}

// Kind returns the value type, defaulting to ValueString.
func (c Claim) Kind() string {
	if c.ValueType == "" {
		return ValueString
	}
	return c.ValueType
}

// ClaimSet is an ordered collection of claims. Several claims may share a
// type; only the exact (type, value) pair is unique.
type ClaimSet []Claim

type claimKey struct{ typ, value string }

// Dedup returns the set with repeated (type, value) pairs removed, keeping
// the first occurrence.
func (cs ClaimSet) Dedup() ClaimSet {
	seen := make(map[claimKey]struct{}, len(cs))
	out := make(ClaimSet, 0, len(cs))
	for _, c := range cs {
		k := claimKey{c.Type, c.Value}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Without returns the set minus every claim with the given type and value.
func (cs ClaimSet) Without(typ, value string) ClaimSet {
	out := make(ClaimSet, 0, len(cs))
	for _, c := range cs {
		if c.Type == typ && c.Value == value {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Has reports whether the set contains the (type, value) pair.
func (cs ClaimSet) Has(typ, value string) bool {
	for _, c := range cs {
		if c.Type == typ && c.Value == value {
			return true
		}
	}
	return false
}

// Values returns every value of the given type, in order.
func (cs ClaimSet) Values(typ string) []string {
	var out []string
	for _, c := range cs {
		if c.Type == typ {
			out = append(out, c.Value)
		}
	}
	return out
}

// First returns the first value of the given type.
func (cs ClaimSet) First(typ string) (string, bool) {
	for _, c := range cs {
		if c.Type == typ {
			return c.Value, true
		}
	}
	return "", false
}
