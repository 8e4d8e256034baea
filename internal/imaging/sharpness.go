package imaging

import (
	"fmt"
	"image"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Metric selects the focus measure computed by Sharpness.
type Metric string

const (
	// MetricLaplacian is the variance of the 4-neighbour Laplacian response.
	MetricLaplacian Metric = "laplacian"

	// MetricTenengrad is the mean squared Sobel gradient magnitude.
	MetricTenengrad Metric = "tenengrad"
)

// ParseMetric parses a metric name, case-insensitively. Empty means
// MetricLaplacian.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricLaplacian:
		return MetricLaplacian, nil
	case MetricTenengrad:
		return MetricTenengrad, nil
	default:
		return "", fmt.Errorf("unknown sharpness metric: %s", s)
	}
}

// Sharpness computes a non-negative focus score for a grayscale raster.
// Higher means sharper. Scores are comparable only between images prepared
// with the same PrepareOptions and scored with the same metric.
//
// Pixel intensities are used on the 0-255 scale, and borders are mirrored
// without repeating the edge pixel (dcb|abcd|cba), so MetricLaplacian matches
// the common variance-of-Laplacian focus measure.
//
// Images smaller than 3x3 have no usable neighbourhood and score 0.
func Sharpness(gray *image.Gray, m Metric) (float64, error) {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < 3 || height < 3 {
		return 0, nil
	}

	px := func(x, y int) float64 {
		return float64(gray.Pix[reflect101(y, height)*gray.Stride+reflect101(x, width)])
	}

	switch m {
	case MetricLaplacian, "":
		response := make([]float64, 0, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				lap := px(x, y-1) + px(x-1, y) + px(x+1, y) + px(x, y+1) - 4*px(x, y)
				response = append(response, lap)
			}
		}
		_, variance := stat.PopMeanVariance(response, nil)
		return variance, nil

	case MetricTenengrad:
		energy := make([]float64, 0, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				var gx, gy float64
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						v := px(x+kx, y+ky)
						gx += v * sobelX[ky+1][kx+1]
						gy += v * sobelY[ky+1][kx+1]
					}
				}
				energy = append(energy, gx*gx+gy*gy)
			}
		}
		return stat.Mean(energy, nil), nil

	default:
		return 0, fmt.Errorf("unknown sharpness metric: %s", m)
	}
}

// Score prepares img and returns its sharpness.
func Score(img image.Image, m Metric, opts PrepareOptions) (float64, error) {
	return Sharpness(Prepare(img, opts), m)
}

// ScoreFile loads, prepares and scores the image at path.
func ScoreFile(path string, m Metric, opts PrepareOptions) (float64, error) {
	img, err := Load(path)
	if err != nil {
		return 0, err
	}
	return Score(img, m, opts)
}

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// reflect101 mirrors an index into [0, n) without repeating the border
// element. n must be at least 2.
func reflect101(i, n int) int {
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}
