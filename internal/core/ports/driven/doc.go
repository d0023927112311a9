// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): persistence, embedding providers, vector and
// lexical indexes, token counting and source adapters.
package driven
