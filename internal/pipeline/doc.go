// Package pipeline runs documents end to end: rasterize, condition each
// page, recognize its text, then extract, reconcile and refine one record
// from the concatenated text.
//
// Pages of a document are processed concurrently by a bounded worker
// pool. A page that fails to condition or recognize is counted and
// skipped; the document still yields a record from the remaining pages.
// Only ocr.ErrRecognitionUnavailable stops a batch.
package pipeline
