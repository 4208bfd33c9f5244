package normalize

// itemShape is the closed set of order item layouts found in stored records.
type itemShape interface {
	rawLines() []any
	isItemShape()
}

// legacyShape is a single line flattened into the order's top level.
type legacyShape struct {
	fields map[string]any
}

// multiLineShape carries a list of line maps under "items".
type multiLineShape struct {
	items []any
}

func (s legacyShape) rawLines() []any    { return []any{s.fields} }
func (s multiLineShape) rawLines() []any { return s.items }

func (legacyShape) isItemShape()    {}
func (multiLineShape) isItemShape() {}

func detectShape(data map[string]any) itemShape {
	switch items := data["items"].(type) {
	case []any:
		return multiLineShape{items: items}
	case []map[string]any:
		converted := make([]any, len(items))
		for i, it := range items {
			converted[i] = it
		}
		return multiLineShape{items: converted}
	}
	return legacyShape{fields: data}
}
