// Package character holds the fixed tutor catalog and the current selection.
package character

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultVoiceID is used by every built-in character unless configured otherwise.
const DefaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"

// Character is one immutable catalog entry.
type Character struct {
	Name            string
	PortraitAsset   string
	BackgroundAsset string
	VoiceID         string
}

var builtin = []Character{
	{Name: "Einstein", PortraitAsset: "einstein.png", BackgroundAsset: "einstein-bg.png", VoiceID: DefaultVoiceID},
	{Name: "Curie", PortraitAsset: "curie.png", BackgroundAsset: "curie-bg.png", VoiceID: DefaultVoiceID},
	{Name: "Newton", PortraitAsset: "newton.png", BackgroundAsset: "newton-bg.png", VoiceID: DefaultVoiceID},
	{Name: "Lovelace", PortraitAsset: "lovelace.png", BackgroundAsset: "lovelace-bg.png", VoiceID: DefaultVoiceID},
}

// Catalog is an ordered, read-only set of characters.
type Catalog struct {
	entries []Character
}

// NewCatalog returns the built-in catalog with voice IDs overridden by
// voices (keyed case-insensitively by name). Unknown names are reported.
func NewCatalog(voices map[string]string) (Catalog, error) {
	entries := append([]Character(nil), builtin...)
	for name, voice := range voices {
		i := indexOf(entries, name)
		if i < 0 {
			return Catalog{}, fmt.Errorf("character.voices: unknown character %q", name)
		}
		if voice = strings.TrimSpace(voice); voice != "" {
			entries[i].VoiceID = voice
		}
	}
	return Catalog{entries: entries}, nil
}

// All returns the entries in display order.
func (c Catalog) All() []Character {
	return append([]Character(nil), c.entries...)
}

// Len returns the number of entries.
func (c Catalog) Len() int {
	return len(c.entries)
}

// Lookup finds a character by case-insensitive name.
func (c Catalog) Lookup(name string) (Character, bool) {
	i := indexOf(c.entries, name)
	if i < 0 {
		return Character{}, false
	}
	return c.entries[i], true
}

func indexOf(entries []Character, name string) int {
	name = strings.TrimSpace(name)
	for i, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return i
		}
	}
	return -1
}

// Selector tracks the selected character. It is safe for concurrent use.
type Selector struct {
	catalog Catalog

	mu    sync.RWMutex
	index int
}

// NewSelector selects initial, or the first entry when initial is empty.
func NewSelector(catalog Catalog, initial string) (*Selector, error) {
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("character catalog is empty")
	}
	s := &Selector{catalog: catalog}
	if strings.TrimSpace(initial) != "" {
		if err := s.Select(initial); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Current returns the selected character.
func (s *Selector) Current() Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.entries[s.index]
}

// Select switches to the named character.
func (s *Selector) Select(name string) error {
	i := indexOf(s.catalog.entries, name)
	if i < 0 {
		return fmt.Errorf("unknown character %q", name)
	}
	s.mu.Lock()
	s.index = i
	s.mu.Unlock()
	return nil
}

// Cycle moves by delta positions (wrapping) and returns the new selection.
func (s *Selector) Cycle(delta int) Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.catalog.entries)
	s.index = ((s.index+delta)%n + n) % n
	return s.catalog.entries[s.index]
}
