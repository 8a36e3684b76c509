package catalog

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ppiankov/dossier/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	// ErrNotFound is returned for a fact identifier the catalog does not define
	ErrNotFound = errors.New("fact not found in catalog")

	// ErrUnknownArtifact is returned for an artifact the catalog does not define
	ErrUnknownArtifact = errors.New("unknown artifact")
)

// factIDPattern enforces the dotted namespace: category.field[.sub]
var factIDPattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)+$`)

// ConfigError collects every problem found while loading a catalog.
// A catalog with any problem is unusable.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid field catalog (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ConfigError) addf(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Catalog is the validated, read-only registry of facts and artifacts
type Catalog struct {
	categories    []model.Category
	categoryIndex map[string]int
	facts         []model.FactDefinition
	factIndex     map[string]int
	artifacts     []model.ArtifactRequirement
	artifactIndex map[string]int
	version       string
}

// catalogFile is the on-disk shape of a catalog
type catalogFile struct {
	Categories []model.Category            `yaml:"categories"`
	Facts      []model.FactDefinition      `yaml:"facts"`
	Artifacts  []model.ArtifactRequirement `yaml:"artifacts"`
}

// Default returns the embedded visa application catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path loads the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}
	return New(f.Categories, f.Facts, f.Artifacts)
}

// New validates definitions and builds a catalog. Every problem is reported
// in a single *ConfigError; nothing is silently dropped.
func New(categories []model.Category, facts []model.FactDefinition, artifacts []model.ArtifactRequirement) (*Catalog, error) {
	c := &Catalog{
		categoryIndex: make(map[string]int, len(categories)),
		factIndex:     make(map[string]int, len(facts)),
		artifactIndex: make(map[string]int, len(artifacts)),
	}
	problems := &ConfigError{}

	for _, cat := range categories {
		if cat.ID == "" {
			problems.addf("category with empty id")
			continue
		}
		if _, dup := c.categoryIndex[cat.ID]; dup {
			problems.addf("duplicate category %q", cat.ID)
			continue
		}
		c.categoryIndex[cat.ID] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	for _, def := range facts {
		if def.ID == "" {
			problems.addf("fact with empty id")
			continue
		}
		if _, dup := c.factIndex[def.ID]; dup {
			problems.addf("duplicate fact %q", def.ID)
			continue
		}
		c.factIndex[def.ID] = len(c.facts)
		c.facts = append(c.facts, cloneDefinition(def))
	}

	for _, def := range c.facts {
		c.checkFact(def, problems)
	}
	c.checkParentChains(problems)

	for _, art := range artifacts {
		if art.ID == "" {
			problems.addf("artifact with empty id")
			continue
		}
		if _, dup := c.artifactIndex[art.ID]; dup {
			problems.addf("duplicate artifact %q", art.ID)
			continue
		}
		if len(art.Facts) == 0 {
			problems.addf("artifact %q requires no facts", art.ID)
		}
		seen := make(map[string]bool, len(art.Facts))
		for _, id := range art.Facts {
			if _, ok := c.factIndex[id]; !ok {
				problems.addf("artifact %q references undefined fact %q", art.ID, id)
			}
			if seen[id] {
				problems.addf("artifact %q lists fact %q twice", art.ID, id)
			}
			seen[id] = true
		}
		c.artifactIndex[art.ID] = len(c.artifacts)
		c.artifacts = append(c.artifacts, model.ArtifactRequirement{
			ID:    art.ID,
			Title: art.Title,
			Facts: append([]string(nil), art.Facts...),
		})
	}

	if len(problems.Problems) > 0 {
		return nil, problems
	}
	c.version = c.fingerprint()
	return c, nil
}

// fingerprint hashes the validated definitions
func (c *Catalog) fingerprint() string {
	data, _ := json.Marshal(catalogFile{Categories: c.categories, Facts: c.facts, Artifacts: c.artifacts})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Version identifies the catalog content; equal catalogs share a version
func (c *Catalog) Version() string {
	return c.version
}

func (c *Catalog) checkFact(def model.FactDefinition, problems *ConfigError) {
	if !factIDPattern.MatchString(def.ID) {
		problems.addf("fact %q: id must be a dotted namespace like category.field", def.ID)
	}
	if strings.TrimSpace(def.Prompt) == "" {
		problems.addf("fact %q: empty prompt", def.ID)
	}
	if !def.Type.Valid() {
		problems.addf("fact %q: unknown type %q", def.ID, def.Type)
	}
	if !def.Tier.Valid() {
		problems.addf("fact %q: unknown tier %q", def.ID, def.Tier)
	}
	if _, ok := c.categoryIndex[def.Category]; !ok {
		problems.addf("fact %q: undeclared category %q", def.ID, def.Category)
	}
	switch {
	case def.Type == model.TypeSingleChoice && len(def.Choices) < 2:
		problems.addf("fact %q: single_choice needs at least two choices", def.ID)
	case def.Type != model.TypeSingleChoice && len(def.Choices) > 0:
		problems.addf("fact %q: choices are only allowed on single_choice facts", def.ID)
	}
	if def.Parent == "" {
		if len(def.ShowWhen) > 0 {
			problems.addf("fact %q: show_when without parent", def.ID)
		}
		return
	}
	pi, ok := c.factIndex[def.Parent]
	if !ok {
		problems.addf("fact %q: parent %q is not defined", def.ID, def.Parent)
		return
	}
	parent := c.facts[pi]
	if parent.Type == model.TypeSingleChoice {
		for _, v := range def.ShowWhen {
			if !containsFold(parent.Choices, v) {
				problems.addf("fact %q: show_when value %q is not a choice of %q", def.ID, v, parent.ID)
			}
		}
	}
}

// checkParentChains reports every fact whose parent chain loops
func (c *Catalog) checkParentChains(problems *ConfigError) {
	for _, def := range c.facts {
		visited := map[string]bool{def.ID: true}
		for cur := def.Parent; cur != ""; {
			if visited[cur] {
				problems.addf("fact %q: cyclic parent chain through %q", def.ID, cur)
				break
			}
			visited[cur] = true
			idx, ok := c.factIndex[cur]
			if !ok {
				break
			}
			cur = c.facts[idx].Parent
		}
	}
}

// RequirementsFor returns the facts an artifact needs, in declared order
func (c *Catalog) RequirementsFor(artifactID string) ([]model.FactDefinition, error) {
	idx, ok := c.artifactIndex[artifactID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArtifact, artifactID)
	}
	art := c.artifacts[idx]
	defs := make([]model.FactDefinition, 0, len(art.Facts))
	for _, id := range art.Facts {
		defs = append(defs, cloneDefinition(c.facts[c.factIndex[id]]))
	}
	return defs, nil
}

// DefinitionOf returns the definition of a fact
func (c *Catalog) DefinitionOf(factID string) (model.FactDefinition, error) {
	idx, ok := c.factIndex[factID]
	if !ok {
		return model.FactDefinition{}, fmt.Errorf("%w: %q", ErrNotFound, factID)
	}
	return cloneDefinition(c.facts[idx]), nil
}

// Artifact returns an artifact requirement by id
func (c *Catalog) Artifact(id string) (model.ArtifactRequirement, bool) {
	idx, ok := c.artifactIndex[id]
	if !ok {
		return model.ArtifactRequirement{}, false
	}
	art := c.artifacts[idx]
	art.Facts = append([]string(nil), art.Facts...)
	return art, true
}

// Artifacts returns all artifacts in declaration order
func (c *Catalog) Artifacts() []model.ArtifactRequirement {
	out := make([]model.ArtifactRequirement, len(c.artifacts))
	for i, art := range c.artifacts {
		art.Facts = append([]string(nil), art.Facts...)
		out[i] = art
	}
	return out
}

// ArtifactIDs returns every artifact id in declaration order
func (c *Catalog) ArtifactIDs() []string {
	ids := make([]string, len(c.artifacts))
	for i, art := range c.artifacts {
		ids[i] = art.ID
	}
	return ids
}

// Facts returns all fact definitions in declaration order
func (c *Catalog) Facts() []model.FactDefinition {
	out := make([]model.FactDefinition, len(c.facts))
	for i, def := range c.facts {
		out[i] = cloneDefinition(def)
	}
	return out
}

// Categories returns the declared categories in order
func (c *Catalog) Categories() []model.Category {
	return append([]model.Category(nil), c.categories...)
}

// Category looks up a declared category
func (c *Catalog) Category(id string) (model.Category, bool) {
	idx, ok := c.categoryIndex[id]
	if !ok {
		return model.Category{}, false
	}
	return c.categories[idx], true
}

// Index returns the declaration position of a fact, or -1
func (c *Catalog) Index(factID string) int {
	if idx, ok := c.factIndex[factID]; ok {
		return idx
	}
	return -1
}

// CategoryIndex returns the declaration position of a category, or -1
func (c *Catalog) CategoryIndex(id string) int {
	if idx, ok := c.categoryIndex[id]; ok {
		return idx
	}
	return -1
}

// ArtifactIndex returns the declaration position of an artifact, or -1
func (c *Catalog) ArtifactIndex(id string) int {
	if idx, ok := c.artifactIndex[id]; ok {
		return idx
	}
	return -1
}

func cloneDefinition(d model.FactDefinition) model.FactDefinition {
	d.ShowWhen = append([]string(nil), d.ShowWhen...)
	d.Choices = append([]string(nil), d.Choices...)
	d.Aliases = append([]string(nil), d.Aliases...)
	return d
}

func containsFold(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
