// Package itemkey derives the identity of a cart line from its product and
// selected customizations. Two items with equal customization sets get the
// same key no matter the order the options were picked in.
package itemkey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Generate returns a stable, collision-resistant key for a
// (productID, customizations) pair. Option names are sorted before encoding
// and every field is length-prefixed so values containing separator
// characters cannot alias a different option set.
func Generate(productID string, customizations map[string]string) string {
	names := make([]string, 0, len(customizations))
	for name := range customizations {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "%d:%s", len(productID), productID)
	for _, name := range names {
		fmt.Fprintf(h, "%d:%s%d:%s", len(name), name, len(customizations[name]), customizations[name])
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
