package strategy

import "fmt"

// Registry is the table of selectable strategy kinds.
type Registry struct {
	order  []Kind
	byType map[string]Kind
}

// NewRegistry builds a registry, panicking on abstract kinds or duplicate
// types.
func NewRegistry(kinds ...Kind) *Registry {
	r := &Registry{byType: make(map[string]Kind, len(kinds))}
	for _, k := range kinds {
		if k.Abstract() {
			panic(fmt.Sprintf("strategy: abstract strategy in list: %s", k.Type))
		}
		if _, dup := r.byType[k.Type]; dup {
			panic(fmt.Sprintf("strategy: duplicate strategy type: %s", k.Type))
		}
		r.order = append(r.order, k)
		r.byType[k.Type] = k
	}
	return r
}

// Default returns the built-in strategies.
func Default() *Registry {
	return NewRegistry(Flat, Binning)
}

// Lookup returns the kind registered for strategyType.
func (r *Registry) Lookup(strategyType string) (Kind, bool) {
	k, ok := r.byType[strategyType]
	return k, ok
}

// Descriptor is the registry metadata of a strategy.
type Descriptor struct {
	StrategyType string `json:"strategy_type"`
	Name         string `json:"name"`
	Abstract     bool   `json:"abstract"`
}

// Descriptors returns the metadata of every registered strategy.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.order))
	for i, k := range r.order {
		out[i] = Descriptor{StrategyType: k.Type, Name: k.Name, Abstract: k.Abstract()}
	}
	return out
}

// Descriptors returns the metadata of the default registry.
func Descriptors() []Descriptor {
	return Default().Descriptors()
}
