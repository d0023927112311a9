// Package services implements the core pipeline: the ingestion coordinator,
// the hybrid retriever, the reranking strategies, the context assembler and
// the query pipeline that ties retrieval stages together.
package services
