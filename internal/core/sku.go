package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSKU builds a human-readable item identifier of the form
// CAT-NAM-yymmdd-XXX from the item's category and name, the given date, and
// a random suffix. Prefixes keep only alphanumerics, uppercased, max 3 runes.
func NewSKU(category, name string, on time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s",
		skuPrefix(category), skuPrefix(name),
		on.Format("060102"), randomSuffix(3))
}

func skuPrefix(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "GEN"
	}
	return strings.ToUpper(b.String())
}

func randomSuffix(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:n])
}
