package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// Codes used by the postboard command.
const (
	CodeConfigMissing  = "P100"
	CodeConfigInvalid  = "P101"
	CodeEnvFile        = "P102"
	CodeStoreOpen      = "P200"
	CodeStorePing      = "P201"
	CodeMigrate        = "P300"
	CodeRollback       = "P301"
	CodeNothingApplied = "P302"
	CodeListen         = "P400"
	CodeShutdown       = "P401"
)

var registry = map[string]Template{
	// Configuration (P100-P199)
	CodeConfigMissing: {
		Category:   CategoryConfig,
		Message:    "Required setting is missing",
		Detail:     "The server cannot start without a database to store accounts and posts.",
		Suggestion: "Set DATABASE_URL, e.g. DATABASE_URL=sqlite:postboard.db, in the environment or in .env",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid setting",
	},
	CodeEnvFile: {
		Category:   CategoryConfig,
		Message:    "Cannot read env file",
		Suggestion: "Check the file is readable and holds KEY=VALUE lines",
	},

	// Store (P200-P299)
	CodeStoreOpen: {
		Category:   CategoryStore,
		Message:    "Cannot open database",
		Suggestion: "DATABASE_URL must start with sqlite: or postgres://",
	},
	CodeStorePing: {
		Category: CategoryStore,
		Message:  "Database is unreachable",
	},

	// Migrations (P300-P399)
	CodeMigrate: {
		Category: CategoryMigration,
		Message:  "Migration failed",
		Detail:   "The failing migration was rolled back; earlier ones stay applied.",
	},
	CodeRollback: {
		Category: CategoryMigration,
		Message:  "Rollback failed",
	},
	CodeNothingApplied: {
		Category:   CategoryMigration,
		Message:    "No migration to roll back",
		Suggestion: "Run 'postboard migrate' first",
	},

	// Server (P400-P499)
	CodeListen: {
		Category:   CategoryServer,
		Message:    "Cannot listen on address",
		Suggestion: "Check ADDR and that no other process holds the port",
	},
	CodeShutdown: {
		Category: CategoryServer,
		Message:  "Shutdown did not complete",
		Detail:   "In-flight requests were still running when the shutdown timeout expired.",
	},
}

// Lookup returns the template for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
