package arbor

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und, cases.NoLower)

// NormalizeName converts a kebab, snake, colon or space separated name to
// PascalCase: "rect" -> "Rect", "i-text" -> "IText",
// "mouse:down" -> "MouseDown". Letters after the first of each word keep
// their case.
func NormalizeName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, w := range words {
		b.WriteString(titleCaser.String(w))
	}
	return b.String()
}

// rawEventNames lists every canvas event the app forwards to node handlers.
var rawEventNames = []string{
	EventObjectModified,
	EventObjectMoving,
	EventObjectScaling,
	EventObjectRotating,
	EventObjectSkewing,
	EventObjectMoved,
	EventObjectScaled,
	EventObjectRotated,
	EventObjectSkewed,
	EventBeforeTransform,
	EventBeforeSelectionCleared,
	EventSelectionCleared,
	EventSelectionCreated,
	EventSelectionUpdated,
	EventMouseUp,
	EventMouseDown,
	EventMouseMove,
	EventMouseUpBefore,
	EventMouseDownBefore,
	EventMouseMoveBefore,
	EventMouseDblClick,
	EventMouseWheel,
	EventMouseOver,
	EventMouseOut,
	EventDrop,
	EventDragOver,
	EventDragEnter,
	EventDragLeave,
}

// Canvas event names.
const (
	EventObjectModified         = "object:modified"
	EventObjectMoving           = "object:moving"
	EventObjectScaling          = "object:scaling"
	EventObjectRotating         = "object:rotating"
	EventObjectSkewing          = "object:skewing"
	EventObjectMoved            = "object:moved"
	EventObjectScaled           = "object:scaled"
	EventObjectRotated          = "object:rotated"
	EventObjectSkewed           = "object:skewed"
	EventBeforeTransform        = "before:transform"
	EventBeforeSelectionCleared = "before:selection:cleared"
	EventSelectionCleared       = "selection:cleared"
	EventSelectionCreated       = "selection:created"
	EventSelectionUpdated       = "selection:updated"
	EventMouseUp                = "mouse:up"
	EventMouseDown              = "mouse:down"
	EventMouseMove              = "mouse:move"
	EventMouseUpBefore          = "mouse:up:before"
	EventMouseDownBefore        = "mouse:down:before"
	EventMouseMoveBefore        = "mouse:move:before"
	EventMouseDblClick          = "mouse:dblclick"
	EventMouseWheel             = "mouse:wheel"
	EventMouseOver              = "mouse:over"
	EventMouseOut               = "mouse:out"
	EventDrop                   = "drop"
	EventDragOver               = "dragover"
	EventDragEnter              = "dragenter"
	EventDragLeave              = "dragleave"
)

// legacyHandlerNames maps a derived handler prop to the older name tried when
// the target does not define the derived one.
var legacyHandlerNames = map[string]string{
	"onObjectMoved":    "onMoved",
	"onObjectMoving":   "onMoving",
	"onObjectScaling":  "onScaling",
	"onObjectRotating": "onRotating",
	"onObjectSkewing":  "onSkewing",
	"onObjectScaled":   "onScaled",
	"onObjectRotated":  "onRotated",
	"onObjectSkewed":   "onSkewed",
	"onMouseUp":        "onClick",
	"onMouseDblclick":  "onDblClick",
}

// handlerNames maps each raw event name to its handler prop name.
var handlerNames = map[string]string{}

// eventProps is the closed set of props treated as event handlers by the
// reconciler.
var eventProps = map[string]bool{
	"onClick":    true,
	"onDblClick": true,
}

func init() {
	for _, raw := range rawEventNames {
		prop := HandlerName(raw)
		handlerNames[raw] = prop
		eventProps[prop] = true
	}
	for _, legacy := range legacyHandlerNames {
		eventProps[legacy] = true
	}
}

// HandlerName returns the node handler prop for a raw canvas event:
// "object:moving" -> "onObjectMoving", "mouse:dblclick" -> "onMouseDblclick".
func HandlerName(event string) string {
	return "on" + NormalizeName(strings.ReplaceAll(event, ":", "-"))
}

// IsEventProp reports whether name is a recognized event handler prop.
func IsEventProp(name string) bool {
	return eventProps[name]
}
