package snapshot

import "strings"

// frameworkWidgets is the fixed set of framework-internal wrapper types
// elided in compact mode: layout/positioning/theming wrappers with no
// semantic value of their own in a summary view.
var frameworkWidgets = map[string]struct{}{
	"Semantics":                  {},
	"MergeSemantics":             {},
	"DefaultTextStyle":           {},
	"AnimatedDefaultTextStyle":   {},
	"MediaQuery":                 {},
	"Localizations":              {},
	"FocusScope":                 {},
	"FocusTrap":                  {},
	"FocusTraversalGroup":        {},
	"Actions":                    {},
	"Shortcuts":                  {},
	"PrimaryScrollController":    {},
	"UnmanagedRestorationScope":  {},
	"RestorationScope":           {},
	"ScrollConfiguration":        {},
	"HeroControllerScope":        {},
	"IconTheme":                  {},
	"ListTileTheme":              {},
	"Theme":                      {},
	"AnimatedTheme":              {},
	"Builder":                    {},
	"RepaintBoundary":            {},
	"NotificationListener":       {},
	"KeepAlive":                  {},
	"AutomaticKeepAlive":         {},
	"KeyedSubtree":               {},
	"Offstage":                   {},
	"TickerMode":                 {},
	"ColoredBox":                 {},
	"DecoratedBox":               {},
	"ConstrainedBox":             {},
	"UnconstrainedBox":           {},
	"LimitedBox":                 {},
	"SizedBox":                   {},
	"Expanded":                   {},
	"Flexible":                   {},
	"Positioned":                 {},
	"Align":                      {},
	"Center":                     {},
	"Padding":                    {},
	"SliverPadding":              {},
	"Material":                   {},
	"InkWell":                    {},
	"Ink":                        {},
	"CustomPaint":                {},
	"PhysicalModel":              {},
	"PhysicalShape":              {},
	"ClipRect":                   {},
	"ClipRRect":                  {},
	"ClipPath":                   {},
	"ClipOval":                   {},
	"Transform":                  {},
	"Opacity":                    {},
	"AnimatedOpacity":            {},
	"FadeTransition":             {},
	"SizeTransition":             {},
	"SlideTransition":            {},
	"ScaleTransition":            {},
	"RotationTransition":         {},
	"AnimatedContainer":          {},
	"AnimatedBuilder":            {},
	"StreamBuilder":              {},
	"FutureBuilder":              {},
	"ValueListenableBuilder":     {},
	"LayoutBuilder":              {},
	"OrientationBuilder":         {},
	"SliverToBoxAdapter":         {},
	"SliverList":                 {},
	"SliverFixedExtentList":      {},
	"SliverFillRemaining":        {},
	"CustomScrollView":           {},
	"Scrollable":                 {},
	"Viewport":                   {},
	"ShrinkWrappingViewport":     {},
}

// isFrameworkWidget reports whether a type is elided in compact mode.
// Underscore-prefixed types are private framework internals.
func isFrameworkWidget(widgetType string) bool {
	if _, ok := frameworkWidgets[widgetType]; ok {
		return true
	}
	return strings.HasPrefix(widgetType, "_")
}
