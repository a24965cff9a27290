package blueprint

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
)

// DefaultCacheSize bounds the number of memoized blueprints.
const DefaultCacheSize = 64

// Cache memoizes blueprints by a hash of the normalized analysis.
// It is passed explicitly into a Scheduler; there is no process-wide cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Blueprint
	order   []string
	limit   int
	hits    int
	misses  int
}

// NewCache creates a cache holding at most limit entries (<= 0 uses the default).
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[string]*Blueprint),
		limit:   limit,
	}
}

// Get returns a copy of the cached blueprint for key.
func (c *Cache) Get(key string) (*Blueprint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bp, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return bp.Clone(), true
}

// Put stores a copy of bp, evicting the oldest entry when full.
func (c *Cache) Put(key string, bp *Blueprint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.limit {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = bp.Clone()
}

// Len returns the number of cached blueprints.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// CacheKey is the hex blake3 digest of the canonical JSON of the normalized
// analysis. List order does not affect the key; design never depends on it.
func CacheKey(a analysis.ProjectAnalysis) string {
	n := a
	n.Domains = normalize(a.Domains)
	n.Technologies = normalize(a.Technologies)
	n.TechnicalChallenges = normalize(a.TechnicalChallenges)
	n.QualityRequirements = normalize(a.QualityRequirements)
	n.SecurityRequirements = normalize(a.SecurityRequirements)
	n.PerformanceRequirements = normalize(a.PerformanceRequirements)
	n.IntegrationNeeds = normalize(a.IntegrationNeeds)
	n.DeploymentNeeds = normalize(a.DeploymentNeeds)
	if n.EstimatedScope == "" {
		n.EstimatedScope = analysis.EstimateScope(a.Complexity, a.WordCount, len(a.Domains))
	}
	// Confidence and word count do not influence the design beyond scope.
	n.Confidence = 0
	n.WordCount = 0
	n.Degraded = false

	canonical, err := json.Marshal(n)
	if err != nil {
		// A struct of strings and numbers always marshals.
		panic(err)
	}
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func normalize(list []string) []string {
	out := append([]string{}, list...)
	sort.Strings(out)
	return out
}
