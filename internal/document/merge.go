package document

// Merge applies update onto existing and returns the result. Neither input is
// modified; untouched subtrees of existing are shared with the result.
//
// For every key of update:
//   - an explicit null removes the key from the result;
//   - an object recurses into existing[key] when that is an object too, and is
//     taken verbatim otherwise (inner nulls included);
//   - anything else, arrays included, overwrites existing[key].
//
// Keys only present in existing are kept. Inputs must be acyclic.
func Merge(existing, update Document) Document {
	out := make(Document, len(existing)+len(update))
	for k, v := range existing {
		out[k] = v
	}
	for k, uv := range update {
		if uv == nil {
			delete(out, k)
			continue
		}
		um, isMap := asMap(uv)
		if !isMap {
			out[k] = uv
			continue
		}
		em, ok := asMap(existing[k])
		if !ok {
			out[k] = map[string]any(um)
			continue
		}
		out[k] = map[string]any(Merge(em, um))
	}
	return out
}
