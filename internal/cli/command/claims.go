package command

import (
	"fmt"
	"strings"

	"github.com/yndnr/authrelay-go/internal/cli/output"
	"github.com/yndnr/authrelay-go/internal/core/domain"
)

// parseClaim reads TYPE=VALUE or TYPE:KIND=VALUE, where KIND is one of
// string, integer, boolean, double or json.
func parseClaim(s string) (domain.Claim, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return domain.Claim{}, fmt.Errorf("invalid claim %q: want TYPE=VALUE", s)
	}
	typ, kind, hasKind := strings.Cut(key, ":")
	c := domain.NewClaim(typ, value)
	if hasKind {
		switch kind {
		case domain.ValueString, domain.ValueInteger, domain.ValueBoolean, domain.ValueDouble, domain.ValueJSON:
			c.ValueType = kind
		default:
			return domain.Claim{}, fmt.Errorf("invalid claim %q: unknown value type %q", s, kind)
		}
	}
	return c, nil
}

func parseClaims(in []string) (domain.ClaimSet, error) {
	cs := make(domain.ClaimSet, 0, len(in))
	for _, s := range in {
		c, err := parseClaim(s)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs.Dedup(), nil
}

// claimList renders a claim set.
type claimList domain.ClaimSet

func (l claimList) Table() *output.Table {
	t := output.NewTable("TYPE", "VALUE", "VALUE TYPE", "ISSUER")
	for _, c := range l {
		t.AddRow(c.Type, c.Value, c.Kind(), c.Issuer)
	}
	return t
}
