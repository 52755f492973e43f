package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Identity limits.
const (
	MaxIDLength        = 512
	MaxIDBaseLength    = 200
	MaxNamespaceLength = 64
	IDHashLength       = 10

	DefaultIDBase    = "doc"
	DefaultNamespace = "default"
)

var (
	disallowedRun = regexp.MustCompile(`[^A-Za-z0-9_.\-]+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// SanitizeID turns an arbitrary source name into an ASCII record id base with a
// 10 hex character SHA-1 suffix of the raw source. The result never exceeds MaxIDLength.
func SanitizeID(source string) string {
	raw := source
	if raw == "" {
		raw = DefaultIDBase
	}
	base := asciiBase(raw, DefaultIDBase)
	if len(base) > MaxIDBaseLength {
		base = base[:MaxIDBaseLength]
	}

	sum := sha1.Sum([]byte(raw))
	id := base + "_" + hex.EncodeToString(sum[:])[:IDHashLength]
	if len(id) > MaxIDLength {
		id = id[:MaxIDLength]
	}
	return id
}

// SanitizeNamespace normalises a namespace name without a hash so it stays
// recognisable and stable across runs.
func SanitizeNamespace(name string) string {
	if name == "" {
		name = DefaultNamespace
	}
	ns := asciiBase(name, DefaultNamespace)
	if len(ns) > MaxNamespaceLength {
		ns = ns[:MaxNamespaceLength]
	}
	return ns
}

// RecordID returns the id of the chunk at ordinal for a sanitized base.
func RecordID(base string, ordinal int) string {
	return fmt.Sprintf("%s_%04d", base, ordinal)
}

// asciiBase decomposes s (NFKD), drops non-ASCII runes, replaces runs of characters
// outside [A-Za-z0-9_.-] with "_", collapses underscores and trims separators.
func asciiBase(s, fallback string) string {
	decomposed := norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}

	out := disallowedRun.ReplaceAllString(b.String(), "_")
	out = underscoreRun.ReplaceAllString(out, "_")
	out = strings.Trim(out, "_.-")
	if out == "" {
		return fallback
	}
	return out
}
