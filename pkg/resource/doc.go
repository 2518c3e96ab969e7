// Package resource defines the extractable GitHub listings and flattens their
// items into CSV records.
//
// Each kind is a Definition binding an entrypoint template, a page decoder over
// go-github models, a mapper to a flat record and, where the listing is ordered
// by time, the timestamp used by the since cutoff. Nested references keep only
// their id or login, lists are joined with commas and structured lists such as
// commit parents or job steps are rendered as JSON text.
package resource
