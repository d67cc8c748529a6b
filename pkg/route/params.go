package route

// Param is one captured dynamic segment.
type Param struct {
	Name  string
	Value string
}

// Params is the ordered list of captures for one match, in pattern order.
type Params []Param

// Get returns the value captured for name.
func (p Params) Get(name string) string {
	v, _ := p.Lookup(name)
	return v
}

// Lookup returns the value captured for name and whether it exists.
func (p Params) Lookup(name string) (string, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// Map copies the params into a map.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, kv := range p {
		m[kv.Name] = kv.Value
	}
	return m
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}
