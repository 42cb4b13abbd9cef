package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PackDateCodeLayout formats the date code embedded in set pack names
const PackDateCodeLayout = "060102"

var (
	piecesSuffix = regexp.MustCompile(`\s*\(\d+ pcs\)$`)
	batchSuffix  = regexp.MustCompile(`\s*\[\d{6}-[0-9A-Z]+\]$`)
)

// NamedPackItem is a pack line with the display name of what it holds
type NamedPackItem struct {
	PackItem
	Name string
}

// AutoPackName names a pack from its contents:
//
//	one instrument: "<name> (<qty> pcs)"
//	one set:        "<name> [<yyMMdd>-<suffix>]"
//	anything else:  "Mixed Pack: <first> + <n-1> others"
func AutoPackName(items []NamedPackItem, now time.Time, suffix string) string {
	if len(items) == 0 {
		return ""
	}
	first := items[0]
	if len(items) == 1 {
		if first.ItemType == ItemTypeSet {
			return fmt.Sprintf("%s [%s-%s]", first.Name, now.Format(PackDateCodeLayout), strings.ToUpper(suffix))
		}
		return fmt.Sprintf("%s (%d pcs)", first.Name, first.Quantity)
	}
	return fmt.Sprintf("Mixed Pack: %s + %d others", first.Name, len(items)-1)
}

// BasePackName strips the generated suffixes so packs of the same content compare equal
func BasePackName(name string) string {
	base := piecesSuffix.ReplaceAllString(name, "")
	base = batchSuffix.ReplaceAllString(base, "")
	return strings.TrimSpace(base)
}

// OldestEarlierPack returns the oldest candidate with the same base name and
// status as pack that was created strictly before it, or nil.
func OldestEarlierPack(pack *SterilePack, candidates []*SterilePack) *SterilePack {
	base := BasePackName(pack.Name)
	var oldest *SterilePack
	for _, c := range candidates {
		if c.ID == pack.ID || c.Status != pack.Status || !c.CreatedAt.Before(pack.CreatedAt) {
			continue
		}
		if BasePackName(c.Name) != base {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	return oldest
}
