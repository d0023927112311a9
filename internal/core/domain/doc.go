// Package domain contains the core business entities for the ingestion
// and retrieval pipeline: source units, tracked entries, chunks, retrieval
// candidates and assembled contexts. It has no dependencies on adapters.
package domain
