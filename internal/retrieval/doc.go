// Package retrieval implements the context pipeline that grounds chat turns
// in prior conversation: sentence chunking, vector retrieval, heuristic
// re-ranking, and context composition.
//
// # Overview
//
// Every stored message is split into sentence-level chunks, embedded, and
// persisted per source category ("user" or "assistant"). At query time the
// pipeline runs:
//
//	query ──> Retriever ──> []Candidate ──> Composer ──> context string
//	              │
//	              ├── user partition search     (parallel)
//	              └── assistant partition search
//
// The Retriever embeds the query once, searches both partitions concurrently,
// merges the hits, and re-ranks them with a statement-over-question boost.
// The Composer takes the ranked candidates and produces the final context
// string: it drops echoes of the current query, filters prior model refusals,
// deduplicates, and joins with a separator. The Ingestor feeds the store:
// chunk, embed, bulk insert. All chunks of one message succeed or none do.
//
// # Collaborators
//
// The package consumes two small interfaces, Embedder and Store, defined
// here (interfaces belong to the consumer). Production implementations live
// in internal/knowledge; tests substitute deterministic fakes.
//
// # Failure policy
//
// Retrieval never takes down a chat turn. An embedding failure or a
// dimensionality mismatch degrades to zero candidates; a store failure
// surfaces as ErrSearch so the caller can log it and answer without context.
package retrieval
