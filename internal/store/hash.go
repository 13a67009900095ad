package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ComputeSignatureHash computes a deterministic hash from a declaration's
// public shape. Covers: name, kind, modifiers, the printed members and
// the printed header (type parameters, heritage, signature or type).
// Location and documentation changes do NOT affect the hash.
func ComputeSignatureHash(name, kind string, modifiers, members []string, header string) string {
	h := sha256.New()

	// Core identity.
	fmt.Fprintf(h, "name:%s\n", name)
	fmt.Fprintf(h, "kind:%s\n", kind)

	// Modifiers sorted for determinism.
	sorted := make([]string, len(modifiers))
	copy(sorted, modifiers)
	sort.Strings(sorted)
	fmt.Fprintf(h, "modifiers:%s\n", strings.Join(sorted, ","))

	fmt.Fprintf(h, "header:%s\n", strings.Join(strings.Fields(header), " "))

	// Members sorted so reordering is not a change.
	mkeys := make([]string, len(members))
	for i, m := range members {
		mkeys[i] = strings.Join(strings.Fields(m), " ")
	}
	sort.Strings(mkeys)
	for _, m := range mkeys {
		fmt.Fprintf(h, "member:%s\n", m)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
