// Package conditioning prepares page images for text recognition.
//
// A Conditioner runs three stages on every page, in order:
//
//  1. Enhancer: denoise, local contrast equalization and sharpening
//  2. Orientation correction (see the detection package)
//  3. Binarizer: adaptive thresholding down to pure black and white
//
// # Profiles
//
// Both the Enhancer and the Binarizer come in two strengths selected by a
// Profile. Gentle suits clean office scans and keeps thin Thai vowel and
// tone marks intact. Aggressive suits phone photos and faxes with uneven
// lighting and speckle, at the cost of occasionally fusing marks into the
// consonant below. A Conditioner uses one profile for both stages.
//
// # Failure Handling
//
// Enhancement is best effort: when it fails the original page continues
// through the rest of the pipeline. Binarization failure fails the page.
package conditioning
