package geo

// MaxDepth is the finest geohash precision used for aggregation.
const MaxDepth = 9

// zoomSteps maps the upper zoom bound of each step to its geohash precision.
var zoomSteps = [...]struct {
	maxZoom float64
	depth   int
}{
	{5, 1},
	{8, 2},
	{10, 3},
	{12, 4},
	{14, 5},
	{16, 6},
	{18, 7},
	{19, 8},
}

// DepthForZoom returns the geohash precision for a map zoom level.
// The result is non-decreasing in zoom and lies in [1, MaxDepth].
func DepthForZoom(zoom float64) int {
	for _, s := range zoomSteps {
		if zoom <= s.maxZoom {
			return s.depth
		}
	}
	return MaxDepth
}
