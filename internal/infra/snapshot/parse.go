package snapshot

import (
	"encoding/json"
	"strings"
)

type rawNode struct {
	Description       string          `json:"description"`
	WidgetRuntimeType string          `json:"widgetRuntimeType"`
	ValueID           string          `json:"valueId"`
	CreationLocation  json.RawMessage `json:"creationLocation"`
	Children          []rawNode       `json:"children"`
}

type rawLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Parse converts the diagnostics JSON returned by
// ext.flutter.inspector.getRootWidgetSummaryTree into a WidgetNode tree.
// Returns nil for an empty payload.
func Parse(data json.RawMessage) (*WidgetNode, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return convert(&raw), nil
}

func convert(raw *rawNode) *WidgetNode {
	widgetType := raw.WidgetRuntimeType
	if widgetType == "" {
		widgetType = raw.Description
	}
	if widgetType == "" {
		widgetType = "Unknown"
	}

	node := &WidgetNode{
		Type:        widgetType,
		Description: raw.Description,
		ValueID:     raw.ValueID,
		Location:    parseLocation(raw.CreationLocation),
	}
	for i := range raw.Children {
		node.Children = append(node.Children, convert(&raw.Children[i]))
	}
	return node
}

func parseLocation(data json.RawMessage) *Location {
	if len(data) == 0 {
		return nil
	}
	var loc rawLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil
	}
	if loc.File == "" {
		return nil
	}
	// Only the basename is useful in a one-line display.
	if idx := strings.LastIndexByte(loc.File, '/'); idx >= 0 {
		loc.File = loc.File[idx+1:]
	}
	return &Location{File: loc.File, Line: loc.Line}
}
