// Package knowledge provides the production backends for retrieval: a
// Genkit-backed embedder and a PostgreSQL + pgvector chunk store.
//
// The retrieval package defines the Embedder and Store interfaces and stays
// free of provider and database concerns; this package satisfies them.
package knowledge
