// Package identity creates and persists the device identifier used to key usage counters
// and anonymous purchases.
package identity

import (
	"crypto/rand"
	"io"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fastflix/internal/apperr"
)

const (
	// Prefix starts every device ID.
	Prefix = "ffx_device_"

	randomLength = 16
	minIDLength  = 20
	alphabet     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var idPattern = regexp.MustCompile(`^ffx_device_[a-zA-Z0-9_]+$`)

// Generator mints device IDs of the form ffx_device_<base36 unix millis>_<16 alphanumerics>.
type Generator struct {
	random io.Reader
	now    func() time.Time
}

// NewGenerator uses crypto/rand. There is no fallback to a weaker source.
func NewGenerator() *Generator {
	return &Generator{random: rand.Reader, now: time.Now}
}

func (g *Generator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(len(Prefix) + 10 + 1 + randomLength)
	b.WriteString(Prefix)
	b.WriteString(strconv.FormatInt(g.now().UnixMilli(), 36))
	b.WriteByte('_')

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < randomLength; i++ {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", apperr.Wrap(apperr.Generation, "secure random source unavailable", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// IsValid reports whether id looks like a device ID this package would generate.
func IsValid(id string) bool {
	return len(id) >= minIDLength && strings.HasPrefix(id, Prefix) && idPattern.MatchString(id)
}
