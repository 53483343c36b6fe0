// Package codec converts claim sets to and from their storage form.
//
// Each claim is written as five length-prefixed UTF-8 fields in order:
// type, value, value type, issuer, original issuer. Lengths are unsigned
// LEB128 varints. Records are concatenated with no outer header, so the end
// of the buffer is the end of the list. The storage form is standard base64
// of that buffer.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/yndnr/authrelay-go/internal/core/domain"
)

const fieldsPerClaim = 5

// Encode serializes cs into its binary form. An empty set encodes to an
// empty buffer.
func Encode(cs domain.ClaimSet) []byte {
	size := 0
	for _, c := range cs {
		for _, f := range fields(c) {
			size += binary.MaxVarintLen64 + len(f)
		}
	}

	out := make([]byte, 0, size)
	for _, c := range cs {
		for _, f := range fields(c) {
			out = binary.AppendUvarint(out, uint64(len(f)))
			out = append(out, f...)
		}
	}
	return out
}

// Decode parses a buffer produced by Encode. A truncated or malformed
// trailing record is an error.
func Decode(buf []byte) (domain.ClaimSet, error) {
	cs := domain.ClaimSet{}
	for off := 0; off < len(buf); {
		var f [fieldsPerClaim]string
		for i := range f {
			n, w := binary.Uvarint(buf[off:])
			if w <= 0 {
				return nil, corrupt(len(cs), "bad length prefix at offset %d", off)
			}
			off += w
			if n > uint64(len(buf)-off) {
				return nil, corrupt(len(cs), "field %d truncated at offset %d", i, off)
			}
			f[i] = string(buf[off : off+int(n)])
			off += int(n)
		}
		cs = append(cs, domain.Claim{
			Type:           f[0],
			Value:          f[1],
			ValueType:      f[2],
			Issuer:         f[3],
			OriginalIssuer: f[4],
		})
	}
	return cs, nil
}

// EncodeString returns the base64 storage form of cs.
func EncodeString(cs domain.ClaimSet) string {
	return base64.StdEncoding.EncodeToString(Encode(cs))
}

// DecodeString parses the base64 storage form.
func DecodeString(s string) (domain.ClaimSet, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrClaimsCorrupt.WithDetails("invalid base64").WithCause(err)
	}
	return Decode(buf)
}

func fields(c domain.Claim) [fieldsPerClaim]string {
	return [fieldsPerClaim]string{c.Type, c.Value, c.ValueType, c.Issuer, c.OriginalIssuer}
}

func corrupt(record int, format string, args ...any) error {
	return domain.ErrClaimsCorrupt.WithDetails(fmt.Sprintf("record %d: ", record) + fmt.Sprintf(format, args...))
}
