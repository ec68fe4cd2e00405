package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Engine Errors (E001-E009)
	// ============================================

	"E001": {
		Category:   CategoryElement,
		Message:    "Malformed element",
		Suggestion: "Build elements with vdom.H, vdom.C or the tag helpers and never pass nil children",
	},
	"E002": {
		Category: CategorySurface,
		Message:  "Rendering surface operation failed",
	},
	"E003": {
		Category:   CategoryHooks,
		Message:    "Hook order changed between renders",
		Suggestion: "Declare hooks unconditionally and in the same order on every render",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Component panicked during render",
	},
	"E005": {
		Category: CategoryRuntime,
		Message:  "Engine is closed",
	},
	"E006": {
		Category:   CategoryRuntime,
		Message:    "Too many nested updates",
		Suggestion: "Guard state updates made during render so they settle instead of scheduling another pass every time",
	},

	// ============================================
	// Config Errors (E010-E019)
	// ============================================

	"E010": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check that loom.json is valid JSON (or loom.yaml valid YAML)",
	},
	"E011": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create loom.json in the project root or pass --config",
	},
	"E012": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// ============================================
	// Protocol Errors (E020-E029)
	// ============================================

	"E020": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
	},
	"E021": {
		Category: CategoryProtocol,
		Message:  "Invalid event",
	},
	"E022": {
		Category: CategoryProtocol,
		Message:  "Unknown node",
	},

	// ============================================
	// CLI Errors (E030-E039)
	// ============================================

	"E030": {
		Category: CategoryCLI,
		Message:  "Unknown demo application",
	},
	"E031": {
		Category: CategoryCLI,
		Message:  "Export failed",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
