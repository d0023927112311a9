// Package driving provides interfaces for application entry points
// (primary/inbound ports): ingestion reconciliation and querying.
package driving
