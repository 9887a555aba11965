package data

import "sort"

// Blackboard holds the named values lerp steps drive.
type Blackboard struct {
	values map[string]float64
}

func NewBlackboard() *Blackboard {
	return &Blackboard{values: make(map[string]float64)}
}

func (b *Blackboard) Set(key string, v float64) { b.values[key] = v }

func (b *Blackboard) Get(key string) (float64, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Setter returns a setter bound to key.
func (b *Blackboard) Setter(key string) func(float64) {
	return func(v float64) { b.values[key] = v }
}

// Keys returns the keys in sorted order.
func (b *Blackboard) Keys() []string {
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
