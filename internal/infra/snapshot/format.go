package snapshot

import (
	"fmt"
	"strings"
)

// Format renders display trees as indented text, one node per line:
//
//	Type "text"  [valueId] file.dart:line
func Format(nodes []*DisplayNode) string {
	var sb strings.Builder
	for _, node := range nodes {
		formatNode(&sb, node, 0)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatNode(sb *strings.Builder, node *DisplayNode, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(node.Type)
	if node.Text != "" {
		fmt.Fprintf(sb, " %q", node.Text)
	}
	if node.ValueID != "" {
		fmt.Fprintf(sb, "  [%s]", node.ValueID)
	}
	if node.Location != nil {
		fmt.Fprintf(sb, " %s:%d", node.Location.File, node.Location.Line)
	}
	sb.WriteByte('\n')
	for _, child := range node.Children {
		formatNode(sb, child, depth+1)
	}
}
