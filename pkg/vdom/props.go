package vdom

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// PropOp is the kind of change DiffProps reports.
type PropOp uint8

const (
	PropSet      PropOp = iota + 1 // Attribute added or changed
	PropRemove                     // Attribute removed
	PropListen                     // Listener added
	PropUnlisten                   // Listener removed
)

// String returns the string representation of the PropOp.
func (op PropOp) String() string {
	switch op {
	case PropSet:
		return "Set"
	case PropRemove:
		return "Remove"
	case PropListen:
		return "Listen"
	case PropUnlisten:
		return "Unlisten"
	default:
		return "Unknown"
	}
}

// PropChange is one entry of a props diff.
type PropChange struct {
	Op    PropOp
	Name  string // Attribute name, or event name without the "on" prefix
	Value any    // New value for PropSet, handler for PropListen
}

// IsEventProp returns true if the key is a listener (starts with "on").
// SECURITY: Case-insensitive to catch onclick, ONCLICK, onClick, OnLoad, etc.
func IsEventProp(key string) bool {
	return len(key) > 2 && strings.EqualFold(key[:2], "on")
}

// EventName returns the lower-cased event name of a listener prop
// ("onClick" -> "click").
func EventName(key string) string {
	if !IsEventProp(key) {
		return ""
	}
	return strings.ToLower(key[2:])
}

// AttrName returns the surface attribute name for a prop key, mapping the
// className and htmlFor aliases.
func AttrName(key string) string {
	switch key {
	case "className":
		return "class"
	case "htmlFor":
		return "for"
	}
	return key
}

// isDiffed reports whether a prop takes part in surface diffs.
func isDiffed(key string) bool {
	return key != ChildrenProp && key != "key"
}

// DiffProps compares two prop maps and returns the changes needed to turn
// prev into next, sorted by name. Attributes are compared by value.
// Listeners are compared by presence only: replacing one handler with another
// is not a change, surfaces always bind the handler found in next.
func DiffProps(prev, next Props) []PropChange {
	var changes []PropChange

	for key, prevVal := range prev {
		if !isDiffed(key) {
			continue
		}
		nextVal, exists := next[key]
		if IsEventProp(key) {
			if !exists || nextVal == nil {
				if prevVal != nil {
					changes = append(changes, PropChange{Op: PropUnlisten, Name: EventName(key)})
				}
			}
			continue
		}
		if !exists {
			changes = append(changes, PropChange{Op: PropRemove, Name: key})
		} else if !PropsEqual(prevVal, nextVal) {
			changes = append(changes, PropChange{Op: PropSet, Name: key, Value: nextVal})
		}
	}

	for key, nextVal := range next {
		if !isDiffed(key) {
			continue
		}
		prevVal, exists := prev[key]
		if IsEventProp(key) {
			if nextVal != nil && (!exists || prevVal == nil) {
				changes = append(changes, PropChange{Op: PropListen, Name: EventName(key), Value: nextVal})
			}
			continue
		}
		if !exists {
			changes = append(changes, PropChange{Op: PropSet, Name: key, Value: nextVal})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Name != changes[j].Name {
			return changes[i].Name < changes[j].Name
		}
		return changes[i].Op < changes[j].Op
	})
	return changes
}

// Listeners returns the listener props of p keyed by event name.
func Listeners(p Props) map[string]any {
	var out map[string]any
	for key, val := range p {
		if IsEventProp(key) && val != nil {
			if out == nil {
				out = make(map[string]any)
			}
			out[EventName(key)] = val
		}
	}
	return out
}

// PropsEqual compares two prop values for equality.
func PropsEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
		return false
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
		return false
	case int64:
		if bv, ok := b.(int64); ok {
			return av == bv
		}
		return false
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
		return false
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
		return false
	case nil:
		return b == nil
	}
	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}

// PropToString converts a prop value to its attribute string form.
func PropToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
