package domain

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	refGroupSize   = 4
	refRandomBlock = 3 // number of 4-digit random groups
)

var (
	compactRefPattern  = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{4}[0-9]{12}$`)
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}$`)
	bankCodePattern    = regexp.MustCompile(`^[A-Z0-9]{4}$`)
)

// ValidateRefPrefix reports whether references generated with these prefix
// blocks would be recognised by IsExternalRef. Case is ignored.
func ValidateRefPrefix(countryCode, bankCode string) error {
	if !countryCodePattern.MatchString(strings.ToUpper(countryCode)) {
		return fmt.Errorf("country code %q must be two letters followed by two digits", countryCode)
	}
	if !bankCodePattern.MatchString(strings.ToUpper(bankCode)) {
		return fmt.Errorf("bank code %q must be four letters or digits", bankCode)
	}
	return nil
}

// RefGenerator produces IBAN-like external references of the form
// "<country> <bank> NNNN NNNN NNNN". Uniqueness is enforced by storage.
type RefGenerator struct {
	prefix string
	rand   io.Reader
}

// NewRefGenerator creates a generator with the given constant prefix blocks.
func NewRefGenerator(countryCode, bankCode string) *RefGenerator {
	return &RefGenerator{
		prefix: strings.ToUpper(countryCode) + " " + strings.ToUpper(bankCode),
		rand:   rand.Reader,
	}
}

// Generate returns a new reference in canonical form.
func (g *RefGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString(g.prefix)

	ten := big.NewInt(10)
	for i := 0; i < refRandomBlock; i++ {
		b.WriteByte(' ')
		for j := 0; j < refGroupSize; j++ {
			n, err := rand.Int(g.rand, ten)
			if err != nil {
				return "", fmt.Errorf("generating reference digit: %w", err)
			}
			b.WriteByte(byte('0' + n.Int64()))
		}
	}
	return b.String(), nil
}

// CompactRef strips all whitespace and upper-cases the reference.
func CompactRef(ref string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, ref)
}

// NormalizeRef returns the canonical stored form: whitespace removed, then a
// single space every four characters with no trailing separator.
func NormalizeRef(ref string) string {
	compact := CompactRef(ref)

	var b strings.Builder
	for i, r := range []rune(compact) {
		if i > 0 && i%refGroupSize == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsExternalRef reports whether ref, ignoring whitespace and case, has the
// shape of an external reference.
func IsExternalRef(ref string) bool {
	return compactRefPattern.MatchString(CompactRef(ref))
}

// UnwrapRef reduces a URI-wrapped identifier to its trailing path segment.
// Anything that is not an absolute URI is returned trimmed but otherwise
// unchanged.
func UnwrapRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "://") {
		return ref
	}

	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		return ref
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}
	if last == "" {
		return ref
	}
	return last
}

// WalletIDForRef builds the URI-style wallet id for an external reference.
func WalletIDForRef(baseURL, ref string) string {
	return strings.TrimRight(baseURL, "/") + "/" + CompactRef(ref)
}

// RandomWalletID builds an opaque wallet id.
func RandomWalletID() string {
	return "wallet-" + uuid.NewString()[:8]
}
