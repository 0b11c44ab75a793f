// Package imaging provides the pixel primitives used to condition scanned
// invoice pages before text recognition.
//
// Every operation works on *image.Gray buffers anchored at the origin and
// returns a new buffer; inputs are never modified. Callers convert arbitrary
// decoded images with ToGray first. The coordinate system places (0,0) at the
// top-left corner, X increases rightward and Y increases downward. Angles are
// measured in that frame, so a line falling to the right has a positive angle.
//
// # Page Images
//
// PageImage pairs a raster with its acquisition metadata (document id, page
// index, resolution). Derive produces a successor page for each conditioning
// stage so a later stage can be re-run with different parameters.
//
// # Primitive Families
//
//   - Conversion: ToGray, Invert, AddWeighted
//   - Filtering: Median, GaussianBlur, UnsharpMask, Sharpen, CLAHE, ScaleAbs
//   - Thresholding: Otsu, Binary, AdaptiveGaussian, MergeThresholds
//   - Morphology: Erode, Dilate, Opening, Closing with rectangular kernels
//   - Geometry: Canny, HoughLines, Components, MinAreaRect, Rotate, Crop
//
// # Error Handling
//
// Pixel operations cannot fail once a buffer exists. Loading is the only
// fallible step and reports ErrLoadFailure wrapped with the cause, so the
// pipeline can decide between pass-through and abort with errors.Is.
//
// # Thread Safety
//
// All functions are stateless. ImageCache is safe for concurrent use.
package imaging
