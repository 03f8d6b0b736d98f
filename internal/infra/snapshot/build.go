package snapshot

import "strings"

// Build transforms raw widget trees into display trees. The transformation
// is pure: the input is never mutated, and identical inputs produce
// structurally identical output.
//
// Order of concerns per node:
//   - filter: a subtree with no match anywhere beneath it (and no matched
//     ancestor) is pruned; ancestors of a match are retained so the tree
//     stays connected.
//   - compaction: framework wrapper nodes are elided, their children
//     spliced into the elided node's position with order preserved.
//     Filter wins: a node that matches is never elided.
//   - depth: nodes beyond the display-depth budget are omitted without
//     traversing their subtrees. Depth counts as if elided nodes never
//     existed.
func Build(roots []*WidgetNode, opts Options) []*DisplayNode {
	b := &builder{opts: opts}
	if opts.Filter != "" {
		b.contains = make(map[*WidgetNode]bool)
		for _, root := range roots {
			b.markMatches(root)
		}
	}
	var out []*DisplayNode
	for _, root := range roots {
		out = append(out, b.build(root, 0, false)...)
	}
	return out
}

type builder struct {
	opts     Options
	contains map[*WidgetNode]bool
}

// markMatches records, per node, whether the node or any descendant matches
// the filter.
func (b *builder) markMatches(node *WidgetNode) bool {
	if node == nil {
		return false
	}
	found := matchesFilter(node.Type, b.opts.Filter)
	for _, child := range node.Children {
		if b.markMatches(child) {
			found = true
		}
	}
	b.contains[node] = found
	return found
}

// build returns the display nodes occupying this node's position: one node
// normally, the promoted children when the node is elided, nothing when the
// node is pruned.
func (b *builder) build(node *WidgetNode, depth int, underMatch bool) []*DisplayNode {
	if node == nil {
		return nil
	}

	matched := b.opts.Filter != "" && matchesFilter(node.Type, b.opts.Filter)
	if b.opts.Filter != "" && !underMatch && !b.contains[node] {
		return nil
	}

	if b.opts.Compact && !matched && isFrameworkWidget(node.Type) {
		var promoted []*DisplayNode
		for _, child := range node.Children {
			promoted = append(promoted, b.build(child, depth, underMatch)...)
		}
		return promoted
	}

	if b.opts.MaxDepth != nil && depth > *b.opts.MaxDepth {
		return nil
	}

	display := &DisplayNode{
		Type:     node.Type,
		Text:     textContent(node),
		ValueID:  node.ValueID,
		Location: node.Location,
	}
	for _, child := range node.Children {
		display.Children = append(display.Children, b.build(child, depth+1, underMatch || matched)...)
	}
	return []*DisplayNode{display}
}

// textContent extracts the string payload of a Text widget from its
// diagnostics description (`Text "Hello"`).
func textContent(node *WidgetNode) string {
	if node.Type != "Text" || node.Description == "" || node.Description == "Text" {
		return ""
	}
	text := strings.TrimSpace(strings.TrimPrefix(node.Description, "Text"))
	return strings.Trim(text, `"`)
}

// matchesFilter matches a widget type name against a case-sensitive
// substring or *-glob pattern.
func matchesFilter(name, filter string) bool {
	if filter == "" {
		return true
	}
	if strings.ContainsRune(filter, '*') {
		return globMatch(filter, name)
	}
	return strings.Contains(name, filter)
}

func globMatch(pattern, text string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return text == pattern
	}
	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(text[pos:], part)
		if idx < 0 {
			return false
		}
		if i == 0 && idx != 0 {
			return false
		}
		pos += idx + len(part)
	}
	if parts[len(parts)-1] != "" {
		return pos == len(text)
	}
	return true
}
