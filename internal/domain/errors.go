package domain

import "errors"

var (
	// ErrReferenceUnavailable means the PSGC service is unreachable and no
	// local cache exists. Fatal: without the reference tree no location
	// normalization is possible, so the whole run aborts.
	ErrReferenceUnavailable = errors.New("location reference unavailable")

	// ErrImageDecode means the fetched bytes are not a decodable raster
	// image. Absorbed at the per-image boundary.
	ErrImageDecode = errors.New("image decode failed")

	// ErrExtractionExhausted means every configured model failed all of its
	// retry attempts for one image. Absorbed at the per-image boundary.
	ErrExtractionExhausted = errors.New("all generative models exhausted")
)
