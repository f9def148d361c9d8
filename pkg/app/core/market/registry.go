package market

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var pairPattern = regexp.MustCompile(`^[A-Za-z]{6}$`)

// ValidPair reports whether s is a six-letter currency pair code, in any case.
func ValidPair(s string) bool {
	return pairPattern.MatchString(s)
}

// Normalize upper-cases a pair code. The engine only ever sees normalized codes.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Pair is a tradable currency pair such as BTCZAR.
type Pair struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

func NewPair(symbol string) (Pair, error) {
	if !ValidPair(symbol) {
		return Pair{}, fmt.Errorf("invalid currency pair %q", symbol)
	}
	s := Normalize(symbol)
	return Pair{Symbol: s, BaseAsset: s[:3], QuoteAsset: s[3:]}, nil
}

// Registry tracks every pair the venue has seen, safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	pairs map[string]Pair // symbol -> pair
}

func NewRegistry() *Registry {
	return &Registry{
		pairs: make(map[string]Pair),
	}
}

// DefaultPairs are the pairs known at startup.
func DefaultPairs() []string {
	return []string{"BTCEUR", "BTCZAR", "BTCUSD", "ETHUSD", "ETHZAR", "ETHEUR"}
}

// Register adds a pair; it fails if the pair already exists or is malformed.
func (r *Registry) Register(symbol string) error {
	p, err := NewPair(symbol)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pairs[p.Symbol]; exists {
		return fmt.Errorf("pair %s already registered", p.Symbol)
	}
	r.pairs[p.Symbol] = p
	return nil
}

// Ensure registers the pair when missing and returns it.
func (r *Registry) Ensure(symbol string) (Pair, error) {
	p, err := NewPair(symbol)
	if err != nil {
		return Pair{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pairs[p.Symbol]; ok {
		return existing, nil
	}
	r.pairs[p.Symbol] = p
	return p, nil
}

func (r *Registry) Get(symbol string) (Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.pairs[Normalize(symbol)]
	if !exists {
		return Pair{}, fmt.Errorf("pair %s not found", symbol)
	}
	return p, nil
}

// List returns all pairs sorted by symbol.
func (r *Registry) List() []Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs := make([]Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Symbol < pairs[j].Symbol })
	return pairs
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}
