// Package detection finds page geometry in scanned invoice images.
//
// Two detectors live here. The OrientationCorrector estimates how far a
// page is rotated from level and turns it back; the TextRegionDetector
// proposes line and block boxes that a recognition engine can use as hints.
// Both work on grayscale buffers produced by the imaging package and never
// modify their input.
//
// # Orientation Estimation
//
// Skew is voted on by two independent samplers:
//
//   - Lines: Canny edges (50/150) feed a Hough transform with 1 pixel and
//     1 degree resolution. The 50 strongest peaks above 100 votes each
//     contribute θ - 90 degrees.
//   - Blobs: the page is binarized (dark ink becomes foreground), closed
//     with a 30x1 rectangle so characters fuse into line blobs, and every
//     blob larger than MinBlobArea contributes the angle of its minimum-area
//     rotated rectangle folded into (-45, 45].
//
// Samples with |angle| >= 45 are discarded. The rest are pooled into a
// 90-bin histogram over [-45, 45) and the midpoint of the fullest bin is the
// estimate. No samples means an estimate of exactly 0 with status NoSignal.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// A positive angle is a line that falls to the right. Rotating the page by
// the estimate brings such lines back to horizontal.
//
// # Text Regions
//
// Text regions are advisory. A page with no regions is still recognized as
// a whole; the regions only narrow the engine's attention.
package detection
