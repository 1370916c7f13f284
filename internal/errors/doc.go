// Package errors provides structured, actionable error messages for the
// postboard command.
//
// Each error has a unique code (e.g., "P100") that maps to a short
// message, an optional explanation and a hint:
//
//	err := errors.New(errors.CodeConfigMissing).WithDetail("DATABASE_URL is empty")
//	errors.Fprint(os.Stderr, err)
//	// ERROR P100: Required setting is missing
//	//
//	//   DATABASE_URL is empty
//	//
//	//   Hint: Set DATABASE_URL, e.g. DATABASE_URL=sqlite:postboard.db, in the environment or in .env
//
// Errors from the rpc layer never use this package; they travel on the
// wire as protocol errors.
package errors
