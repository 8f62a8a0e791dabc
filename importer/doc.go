// Package importer bulk-loads documents into a store.
//
// Input is JSON lines, one document per line:
//
//	{"docId":"doc-1","title":"Report","data":{"text":"hello"},"userId":"user-42"}
//
// Every line becomes one independent Save, run concurrently on a worker pool.
// A line that fails to parse or save is counted and reported but does not stop
// the remaining lines.
package importer
