package config

// Tree is the structural configuration value: a nested string-keyed map.
// Layer documents are loaded into Trees and combined with Merge before the
// result is decoded into a typed ResolvedConfig.
type Tree map[string]any

// Merge combines two trees, with override taking precedence. The result
// equals base for keys absent from override, override for keys present only
// there, and the recursive merge for keys that are maps in both. When the
// shapes disagree (map on one side, scalar on the other) the override value
// wins outright. Neither input is mutated.
func Merge(base, override Tree) Tree {
	result := make(Tree, len(base)+len(override))
	for key, value := range base {
		result[key] = cloneValue(value)
	}

	for key, value := range override {
		baseChild, baseIsTree := asTree(result[key])
		overrideChild, overrideIsTree := asTree(value)
		if baseIsTree && overrideIsTree {
			result[key] = Merge(baseChild, overrideChild)
			continue
		}
		result[key] = cloneValue(value)
	}
	return result
}

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	if t == nil {
		return Tree{}
	}
	return Merge(Tree{}, t)
}

// Child returns the subtree at key, or nil when the key is absent or not a
// map.
func (t Tree) Child(key string) Tree {
	child, ok := asTree(t[key])
	if !ok {
		return nil
	}
	return child
}

// String returns the string value at key, or fallback.
func (t Tree) String(key, fallback string) string {
	if s, ok := t[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// asTree normalizes the map types produced by the YAML and JSON decoders.
func asTree(v any) (Tree, bool) {
	switch m := v.(type) {
	case Tree:
		return m, true
	case map[string]any:
		return Tree(m), true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	if child, ok := asTree(v); ok {
		return child.Clone()
	}
	if list, ok := v.([]any); ok {
		copied := make([]any, len(list))
		for i, item := range list {
			copied[i] = cloneValue(item)
		}
		return copied
	}
	return v
}
