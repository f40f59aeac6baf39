// Package acl is the anti-corruption layer between remote quote APIs and the
// domain.
//
// External DTOs stay unexported here. Every response is translated into
// domain.Quote values, and every failure becomes a domain error:
//
//   - 404 → [domain.ErrNotFound]
//   - 409 → [domain.ErrConflict]
//   - 400/422 and other 4xx → [domain.ErrValidation]
//   - 401/403/429, 5xx, transport failures → [domain.ErrUnavailable]
//
// An open breaker, exhausted retries or a malformed body also map to
// [domain.ErrUnavailable], which the corpus manager treats as a skipped source.
//
// [CorpusClient] is the only adapter: it pages through a quotable-style
// listing and serves as both a corpus source and an optional health check.
package acl
