package extract

import (
	"fmt"
	"sort"
)

var strategies = map[string]Structurer{
	PositionalV1Name: PositionalV1{},
}

// Lookup returns the registered strategy with the given name. An empty name
// selects positional-v1. llm-v1 needs a model client and is built with NewLLMV1.
func Lookup(name string) (Structurer, error) {
	if name == "" {
		name = PositionalV1Name
	}
	s, ok := strategies[name]
	if !ok && name == LLMV1Name {
		return nil, fmt.Errorf("strategy %q needs a model client", name)
	}
	if !ok {
		return nil, fmt.Errorf("unknown extraction strategy %q (known: %v)", name, Names())
	}
	return s, nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	out := make([]string, 0, len(strategies)+1)
	for n := range strategies {
		out = append(out, n)
	}
	out = append(out, LLMV1Name)
	sort.Strings(out)
	return out
}
