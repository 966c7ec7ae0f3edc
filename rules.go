// ABOUTME: Rule table mapping sender identities to alert sounds.
// ABOUTME: Control-loop mutation with snapshot reads for the network worker.

package main

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrDuplicateRule is returned when a rule's sender id collides with
	// a different existing rule.
	ErrDuplicateRule = errors.New("a rule for this sender id already exists")

	// ErrMissingSender is returned when a rule has no sender id.
	ErrMissingSender = errors.New("sender id is required")

	// ErrBadSoundExt is returned when a rule's sound path does not end in
	// an allowed audio extension.
	ErrBadSoundExt = errors.New("sound file must be .wav or .mp3")

	// ErrRuleNotFound is returned when an update targets a sender id that
	// is not in the table.
	ErrRuleNotFound = errors.New("no rule for this sender id")
)

// allowedSoundExts lists the audio file extensions a rule may reference.
var allowedSoundExts = []string{".wav", ".mp3"}

// Rule binds a sender identity to a local alert sound and an optional
// push sound override.
type Rule struct {
	Name      string `json:"name,omitempty"`
	SenderID  string `json:"senderId"`
	SoundPath string `json:"soundPath"`
	Volume    int    `json:"volume"`
	PushSound string `json:"pushSound,omitempty"`
}

// ClampVolume limits a volume to the 0-100 range.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// HasAllowedSoundExt reports whether path ends in an allowed audio
// extension. The check is case-insensitive; the path itself is opaque.
func HasAllowedSoundExt(path string) bool {
	low := strings.ToLower(path)
	for _, ext := range allowedSoundExts {
		if strings.HasSuffix(low, ext) {
			return true
		}
	}
	return false
}

// ValidateRule checks a rule before it enters the table.
func ValidateRule(r Rule) error {
	if r.SenderID == "" {
		return ErrMissingSender
	}
	if !HasAllowedSoundExt(r.SoundPath) {
		return ErrBadSoundExt
	}
	return nil
}

// RuleTable holds alert rules in display order. Mutations come from the
// control loop; Find and All take a snapshot under the lock so they are
// safe from the connection worker.
type RuleTable struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewRuleTable creates an empty rule table.
func NewRuleTable() *RuleTable {
	return &RuleTable{}
}

// Add appends a rule. Fails if the sender id is already present.
func (t *RuleTable) Add(r Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}
	r.Volume = ClampVolume(r.Volume)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.indexOf(r.SenderID) >= 0 {
		return ErrDuplicateRule
	}
	t.rules = append(t.rules, r)
	return nil
}

// Update replaces the rule identified by oldID. Fails if the new sender id
// collides with a different existing rule. The rule keeps its position.
func (t *RuleTable) Update(oldID string, r Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}
	r.Volume = ClampVolume(r.Volume)

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(oldID)
	if idx < 0 {
		return ErrRuleNotFound
	}
	if other := t.indexOf(r.SenderID); other >= 0 && other != idx {
		return ErrDuplicateRule
	}
	t.rules[idx] = r
	return nil
}

// Remove deletes the rule for id. Removing an absent id is a no-op.
func (t *RuleTable) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if idx := t.indexOf(id); idx >= 0 {
		t.rules = append(t.rules[:idx], t.rules[idx+1:]...)
	}
}

// Find returns the rule for the exact sender id, if any.
func (t *RuleTable) Find(id string) (Rule, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if idx := t.indexOf(id); idx >= 0 {
		return t.rules[idx], true
	}
	return Rule{}, false
}

// All returns the rules in display order as a copy.
func (t *RuleTable) All() []Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Count returns the number of rules.
func (t *RuleTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}

// Reorder rearranges the table to match the given sender id order.
// Ids not in the table are ignored; rules missing from the order keep
// their relative position at the end.
func (t *RuleTable) Reorder(order []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byID := make(map[string]Rule, len(t.rules))
	for _, r := range t.rules {
		byID[r.SenderID] = r
	}

	reordered := make([]Rule, 0, len(t.rules))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if r, ok := byID[id]; ok && !seen[id] {
			reordered = append(reordered, r)
			seen[id] = true
		}
	}
	for _, r := range t.rules {
		if !seen[r.SenderID] {
			reordered = append(reordered, r)
		}
	}
	t.rules = reordered
}

// Replace swaps in a new rule list, dropping empty ids and keeping the
// first occurrence of any duplicated sender id. Used by config load.
func (t *RuleTable) Replace(rules []Rule) {
	cleaned := make([]Rule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.SenderID == "" || seen[r.SenderID] {
			continue
		}
		r.Volume = ClampVolume(r.Volume)
		seen[r.SenderID] = true
		cleaned = append(cleaned, r)
	}

	t.mu.Lock()
	t.rules = cleaned
	t.mu.Unlock()
}

// indexOf must be called with the lock held.
func (t *RuleTable) indexOf(id string) int {
	for i, r := range t.rules {
		if r.SenderID == id {
			return i
		}
	}
	return -1
}
