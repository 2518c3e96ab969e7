// Package extract runs one export: it walks the listing of a resource kind,
// maps every item to records and streams them to a CSV sink.
//
// Flat kinds are a single walk. Nested kinds walk a parent listing first:
// runs of all workflows, jobs of all runs, files and reviews of pull requests
// and the detail document of every listed user. Child walks run one at a time,
// grouped by parent in the parent listing's order.
package extract
