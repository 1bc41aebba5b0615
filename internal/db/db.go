// Package db provides database utilities and connection handling for Rank Lab.
package db

// PgvectorRequirement documents that the application requires PostgreSQL with pgvector.
// pgvector enables cosine-similarity search over user and post embeddings.
const PgvectorRequirement = "pgvector extension is required for embedding similarity queries"

// VersionQuery is the SQL query to verify pgvector is available.
const VersionQuery = "SELECT extversion FROM pg_extension WHERE extname = 'vector'"
