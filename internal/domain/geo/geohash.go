package geo

import "github.com/mmcloughlin/geohash"

// StoredPrecision is the geohash length persisted on every indexed document.
// Aggregation takes prefixes of it, so it must be at least MaxDepth.
const StoredPrecision = 12

// Geohash encodes p at the given number of characters.
func Geohash(p Point, chars int) string {
	if chars <= 0 {
		return ""
	}
	return geohash.EncodeWithPrecision(p.Lat, p.Lon, uint(chars))
}

// Cell returns the prefix of a stored geohash at the given depth.
func Cell(hash string, depth int) string {
	if depth >= len(hash) {
		return hash
	}
	return hash[:depth]
}
