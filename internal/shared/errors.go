package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Scrape stage errors
	ErrProfileNotFound = fmt.Errorf("profile not found or has no videos")
	ErrBlocked         = fmt.Errorf("blocked by automated traffic countermeasures")
	ErrTimeout         = fmt.Errorf("operation timed out")

	// Classification stage errors. Both are recovered internally via
	// retry-then-fallback and never surface as a hard failure.
	ErrSchemaMismatch = fmt.Errorf("response does not match expected schema")
	ErrAICall         = fmt.Errorf("AI classification call failed")

	// Sync stage errors
	ErrAuthExpired    = fmt.Errorf("access token expired")
	ErrNotAuthorized  = fmt.Errorf("not authorized")
	ErrPlaylistCreate = fmt.Errorf("playlist creation failed")
	ErrSearch         = fmt.Errorf("catalog search failed")
	ErrNoVerifier     = fmt.Errorf("no pending authorization verifier")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
