// Package prompts holds the versioned prompt template library.
//
// Templates are never mutated in place: a deploy publishes a new immutable
// Version and swaps the active pointer under the library lock, so a solve
// running concurrently with a deploy observes either the old set or the
// new one, never a half-applied mix. Superseded versions stay addressable
// for rollback.
package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy names, also the version-numbering domains.
const (
	StrategyTreeOfThought   = "tree_of_thought"
	StrategySelfConsistency = "self_consistency"
)

// Version is one immutable, addressable revision of a template.
type Version struct {
	Strategy  string    `json:"strategy"`
	Variant   string    `json:"variant"`
	Template  string    `json:"template"`
	ID        int       `json:"version_id"`
	BackupOf  int       `json:"backup_of,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Library is the process-wide active prompt set. Path runners read it and
// the optimization manager's deploy step writes it; both go through the
// library lock.
type Library struct {
	mu      sync.RWMutex
	active  map[string]Version
	history []Version
	nextID  map[string]int
}

//go:embed defaults.yaml
var defaultsYAML []byte

// NewLibrary seeds a library from the embedded default catalog.
func NewLibrary() (*Library, error) {
	var catalog map[string]map[string]string
	if err := yaml.Unmarshal(defaultsYAML, &catalog); err != nil {
		return nil, fmt.Errorf("parse default prompts: %w", err)
	}

	l := &Library{
		active: make(map[string]Version),
		nextID: make(map[string]int),
	}
	strategies := make([]string, 0, len(catalog))
	for strategy := range catalog {
		strategies = append(strategies, strategy)
	}
	sort.Strings(strategies)
	for _, strategy := range strategies {
		variants := make([]string, 0, len(catalog[strategy]))
		for variant := range catalog[strategy] {
			variants = append(variants, variant)
		}
		sort.Strings(variants)
		for _, variant := range variants {
			l.publishLocked(strategy, variant, catalog[strategy][variant], 0)
		}
	}
	return l, nil
}

// Render substitutes the problem text into a template.
func Render(template, problem string) string {
	return strings.ReplaceAll(template, "{problem}", problem)
}

// Active returns the currently-deployed version for (strategy, variant).
func (l *Library) Active(strategy, variant string) (Version, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.active[key(strategy, variant)]
	return v, ok
}

// ActiveSet returns the active versions for every variant of a strategy.
func (l *Library) ActiveSet(strategy string) map[string]Version {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]Version)
	for _, v := range l.active {
		if v.Strategy == strategy {
			out[v.Variant] = v
		}
	}
	return out
}

// Deploy publishes template as the new active version for
// (strategy, variant), recording the superseded version as its backup.
func (l *Library) Deploy(strategy, variant, template string) (Version, error) {
	if strings.TrimSpace(template) == "" {
		return Version{}, fmt.Errorf("deploy %s/%s: empty template", strategy, variant)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	backupOf := 0
	if prev, ok := l.active[key(strategy, variant)]; ok {
		backupOf = prev.ID
	}
	return l.publishLocked(strategy, variant, template, backupOf), nil
}

// Rollback reactivates the version the current one backs up. The restored
// version keeps its original ID; rollback never mints a new one.
func (l *Library) Rollback(strategy, variant string) (Version, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.active[key(strategy, variant)]
	if !ok {
		return Version{}, fmt.Errorf("rollback %s/%s: no active version", strategy, variant)
	}
	if cur.BackupOf == 0 {
		return Version{}, fmt.Errorf("rollback %s/%s: version %d has no backup", strategy, variant, cur.ID)
	}
	for _, v := range l.history {
		if v.Strategy == strategy && v.ID == cur.BackupOf {
			l.active[key(strategy, variant)] = v
			return v, nil
		}
	}
	return Version{}, fmt.Errorf("rollback %s/%s: backup version %d not found", strategy, variant, cur.BackupOf)
}

// History returns every version ever published for a strategy, oldest
// first. Superseded versions are never deleted.
func (l *Library) History(strategy string) []Version {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Version, 0)
	for _, v := range l.history {
		if v.Strategy == strategy {
			out = append(out, v)
		}
	}
	return out
}

// Restore replays persisted lineage over the seeded catalog so deployed
// prompts survive a restart. Versions already known (the seeded defaults
// re-read from storage) are skipped by (strategy, ID); the newest
// restored version per variant becomes active.
func (l *Library) Restore(versions []Version) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range versions {
		if v.Strategy == "" || v.Variant == "" || v.ID <= 0 {
			continue
		}
		if l.findLocked(v.Strategy, v.ID) != nil {
			continue
		}
		l.history = append(l.history, v)
		if v.ID > l.nextID[v.Strategy] {
			l.nextID[v.Strategy] = v.ID
		}
		if cur, ok := l.active[key(v.Strategy, v.Variant)]; !ok || v.ID > cur.ID {
			l.active[key(v.Strategy, v.Variant)] = v
		}
	}
}

func (l *Library) findLocked(strategy string, id int) *Version {
	for i := range l.history {
		if l.history[i].Strategy == strategy && l.history[i].ID == id {
			return &l.history[i]
		}
	}
	return nil
}

// Clone returns an independent copy of the library. The optimization
// manager stages candidate templates on a clone so the live set is never
// observed half-applied during validation.
func (l *Library) Clone() *Library {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := &Library{
		active:  make(map[string]Version, len(l.active)),
		history: make([]Version, len(l.history)),
		nextID:  make(map[string]int, len(l.nextID)),
	}
	for k, v := range l.active {
		cp.active[k] = v
	}
	copy(cp.history, l.history)
	for k, v := range l.nextID {
		cp.nextID[k] = v
	}
	return cp
}

func (l *Library) publishLocked(strategy, variant, template string, backupOf int) Version {
	l.nextID[strategy]++
	v := Version{
		Strategy:  strategy,
		Variant:   variant,
		Template:  template,
		ID:        l.nextID[strategy],
		BackupOf:  backupOf,
		CreatedAt: time.Now().UTC(),
	}
	l.active[key(strategy, variant)] = v
	l.history = append(l.history, v)
	return v
}

func key(strategy, variant string) string {
	return strategy + "/" + variant
}
