package element

// Breakpoint is one of the three named viewport classes used for responsive
// property overrides.
type Breakpoint string

const (
	BreakpointMobile  Breakpoint = "mobile"
	BreakpointTablet  Breakpoint = "tablet"
	BreakpointDesktop Breakpoint = "desktop"
)

// breakpointsKey is where per-breakpoint override maps live inside Props.
const breakpointsKey = "breakpoints"

// Valid reports whether b is one of the three known breakpoints.
func (b Breakpoint) Valid() bool {
	switch b {
	case BreakpointMobile, BreakpointTablet, BreakpointDesktop:
		return true
	}
	return false
}

// ResolveProps computes the effective props for the active breakpoint:
// base props shallow-overlaid with that breakpoint's override map, if one
// exists under props["breakpoints"]. Resolution is override-or-base per
// breakpoint — a mobile override never leaks into tablet or desktop. The
// breakpoints table itself is stripped from the result.
func ResolveProps(props map[string]any, active Breakpoint) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k == breakpointsKey {
			continue
		}
		out[k] = copyValue(v)
	}
	overrides, ok := props[breakpointsKey].(map[string]any)
	if !ok {
		return out
	}
	override, ok := overrides[string(active)].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range override {
		out[k] = copyValue(v)
	}
	return out
}

// SetBreakpointOverride returns a copy of props with key set inside the
// override map for the given breakpoint. Desktop edits write to the base
// props directly, matching the editing contract that desktop is the base.
func SetBreakpointOverride(props map[string]any, bp Breakpoint, key string, value any) map[string]any {
	out := copyProps(props)
	if out == nil {
		out = map[string]any{}
	}
	if bp == BreakpointDesktop {
		out[key] = value
		return out
	}
	overrides, ok := out[breakpointsKey].(map[string]any)
	if !ok {
		overrides = map[string]any{}
	}
	byBreakpoint, ok := overrides[string(bp)].(map[string]any)
	if !ok {
		byBreakpoint = map[string]any{}
	}
	byBreakpoint[key] = value
	overrides[string(bp)] = byBreakpoint
	out[breakpointsKey] = overrides
	return out
}
