// Package ocr turns conditioned page images into text.
//
// Three engines are supported:
//
//   - tesseract: in-process Tesseract through gosseract (cgo builds only)
//   - tesseract-cli: the tesseract binary, run once per page
//   - azure: the Azure Computer Vision OCR endpoint
//
// Engines are probed once at startup by Resolve. An explicit engine that
// cannot be used, or no usable engine at all, is reported as
// ErrRecognitionUnavailable and ends the run.
//
// # Prerequisites
//
// Tesseract needs the Thai and English language data:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-tha
//   - macOS: brew install tesseract tesseract-lang
//
// The default language string is "tha+eng" with page segmentation mode 6
// (a single uniform block of text), which suits invoice bodies.
//
// # Concurrency
//
// Engines are safe for concurrent use. The in-process engine creates one
// Tesseract client per call; the Azure engine shares a rate limiter across
// callers.
package ocr
