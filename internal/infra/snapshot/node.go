package snapshot

// WidgetNode is one raw diagnostics node as reported by the Flutter
// inspector, before any display transformation.
type WidgetNode struct {
	Type        string
	Description string
	ValueID     string
	Location    *Location
	Children    []*WidgetNode
}

// Location is where the widget was constructed in user code.
type Location struct {
	File string
	Line int
}

// DisplayNode is one node of the transformed display tree. Value ids pass
// through from the raw tree unchanged so details/layout follow-up calls
// remain valid against displayed nodes.
type DisplayNode struct {
	Type     string
	Text     string
	ValueID  string
	Location *Location
	Children []*DisplayNode
}

// Options controls the Build transformation.
type Options struct {
	// MaxDepth omits nodes whose display depth exceeds it; nil means
	// unlimited. The limit is a traversal bound: pruned subtrees are never
	// visited.
	MaxDepth *int

	// Filter is a case-sensitive substring or *-glob matched against the
	// widget type name. The output keeps the ancestor chain to every match
	// and everything beneath a match; subtrees with no match are pruned.
	Filter string

	// Compact elides framework-internal wrapper widgets, splicing their
	// children into the elided node's position. A node that matches Filter
	// is never elided.
	Compact bool
}
