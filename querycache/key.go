package querycache

import (
	"encoding/json"
	"fmt"
)

// Key identifies a cached query: the resource it reads plus the request
// parameters. Two keys with the same parameters are equal regardless of the
// order the parameters were added in.
type Key struct {
	Resource string
	Params   map[string]any
}

func NewKey(resource string, params map[string]any) Key {
	return Key{Resource: resource, Params: params}
}

// String returns the canonical form of the key. encoding/json writes map
// keys sorted, which is what makes parameter order irrelevant. Resource and
// params are encoded together so neither can spill into the other.
func (k Key) String() string {
	var params map[string]any
	if len(k.Params) > 0 {
		params = k.Params
	}
	raw, err := json.Marshal([]any{k.Resource, params})
	if err != nil {
		return fmt.Sprintf("%q%v", k.Resource, k.Params)
	}
	return string(raw)
}
