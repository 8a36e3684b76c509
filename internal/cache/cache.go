package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ReportKey identifies a computed report. Any change to the targets, the
// floor, the catalog or the fact history yields a different key.
func ReportKey(appID string, targets []string, floor float64, catalogVersion string, facts []model.ExtractedFact) string {
	sorted := append([]string(nil), targets...)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "app=%s\ntargets=%s\nfloor=%g\ncatalog=%s\n", appID, strings.Join(sorted, ","), floor, catalogVersion)
	h.Write([]byte(FactsFingerprint(facts)))
	return "dossier-v1-" + hex.EncodeToString(h.Sum(nil))
}

// FactsFingerprint hashes a fact history independent of its order
func FactsFingerprint(facts []model.ExtractedFact) string {
	lines := make([]string, len(facts))
	for i, f := range facts {
		lines[i] = fmt.Sprintf("%s|%s|%s|%q|%g|%s|%t|%d",
			f.ID, f.ApplicationID, f.FactID, f.Value, f.Confidence, f.Source, f.Cleared, f.RecordedAt.UnixNano())
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
