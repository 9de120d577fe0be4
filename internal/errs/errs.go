// Package errs defines the failure classes shared across the service.
//
// Every external collaborator (embedding provider, vector index, completion
// API) can fail independently, and callers react differently to each class:
// invalid input is surfaced to the client, transient provider failures are
// absorbed with a degraded result, and missing configuration aborts loudly.
// Tags let call sites classify an error without depending on the package
// that produced it.
package errs

import "github.com/m-mizutani/goerr/v2"

var (
	// TagInvalidInput marks errors caused by empty or malformed caller input.
	// Surfaced as a 4xx-style response and never retried.
	TagInvalidInput = goerr.NewTag("invalid_input")

	// TagEmbeddingUnavailable marks embedding provider failures.
	TagEmbeddingUnavailable = goerr.NewTag("embedding_unavailable")

	// TagVectorStoreUnavailable marks vector index failures.
	TagVectorStoreUnavailable = goerr.NewTag("vector_store_unavailable")

	// TagCompletionUnavailable marks completion provider failures.
	TagCompletionUnavailable = goerr.NewTag("completion_unavailable")

	// TagConfigurationMissing marks absent credentials or settings that make
	// an operation impossible, as opposed to a transient outage.
	TagConfigurationMissing = goerr.NewTag("configuration_missing")
)

// IsInvalidInput reports whether err is tagged as caller error.
func IsInvalidInput(err error) bool {
	return goerr.HasTag(err, TagInvalidInput)
}

// IsEmbeddingUnavailable reports whether err is an embedding provider failure.
func IsEmbeddingUnavailable(err error) bool {
	return goerr.HasTag(err, TagEmbeddingUnavailable)
}

// IsVectorStoreUnavailable reports whether err is a vector index failure.
func IsVectorStoreUnavailable(err error) bool {
	return goerr.HasTag(err, TagVectorStoreUnavailable)
}

// IsCompletionUnavailable reports whether err is a completion provider failure.
func IsCompletionUnavailable(err error) bool {
	return goerr.HasTag(err, TagCompletionUnavailable)
}

// IsConfigurationMissing reports whether err indicates absent configuration.
func IsConfigurationMissing(err error) bool {
	return goerr.HasTag(err, TagConfigurationMissing)
}
