// Package imaging loads candidate images and computes their sharpness scores.
//
// Scoring is a two step process. Prepare reduces a decoded image to an 8-bit
// grayscale raster, optionally cropping to the center, downscaling and
// denoising on the way. Sharpness then applies a focus measure to that raster.
//
// # Focus Measures
//
//   - MetricLaplacian: population variance of the response to the kernel
//     [0 1 0; 1 -4 1; 0 1 0]. In-focus images have strong second derivatives
//     at edges and a wide response distribution; blur flattens it.
//   - MetricTenengrad: mean of Gx²+Gy² over the Sobel gradients. Less
//     sensitive to isolated noise pixels than the Laplacian.
//
// Both return larger values for sharper images and are only comparable within
// one run (same metric, same PrepareOptions).
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use on different
// images.
//
// # Error Handling
//
// Open and decode failures are wrapped with ErrUnreadable.
package imaging
