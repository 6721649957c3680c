package spatial

import "strings"

// Base32 alphabet for geohash
const geohashBase32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// MaxGeohashPrecision is the longest supported geohash
const MaxGeohashPrecision = 12

// Approximate cell width at the equator in meters, by precision
var geohashCellMeters = [MaxGeohashPrecision + 1]float64{
	0, 5000000, 625000, 123000, 19500, 3900, 610, 120, 19, 3.7, 0.6, 0.12, 0.019,
}

// Geohash encodes a position into a geohash of the given precision (clamped to 1..12)
func Geohash(p Position, precision int) string {
	precision = clampPrecision(precision)

	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0

	var sb strings.Builder
	sb.Grow(precision)

	ch, bits := 0, 0
	even := true // even bits refine longitude
	for sb.Len() < precision {
		ch <<= 1
		if even {
			mid := (lonLo + lonHi) / 2
			if p.Lon > mid {
				ch |= 1
				lonLo = mid
			} else {
				lonHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if p.Lat > mid {
				ch |= 1
				latLo = mid
			} else {
				latHi = mid
			}
		}
		even = !even

		if bits++; bits == 5 {
			sb.WriteByte(geohashBase32[ch])
			ch, bits = 0, 0
		}
	}

	return sb.String()
}

// GeohashBounds returns (minLat, minLon, maxLat, maxLon) of a geohash cell.
// ok is false when the hash contains a character outside the alphabet.
func GeohashBounds(hash string) (minLat, minLon, maxLat, maxLon float64, ok bool) {
	minLat, maxLat = -90.0, 90.0
	minLon, maxLon = -180.0, 180.0

	even := true
	for i := 0; i < len(hash); i++ {
		idx := strings.IndexByte(geohashBase32, hash[i])
		if idx < 0 {
			return 0, 0, 0, 0, false
		}
		for mask := 16; mask > 0; mask >>= 1 {
			if even {
				mid := (minLon + maxLon) / 2
				if idx&mask != 0 {
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if idx&mask != 0 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			even = !even
		}
	}

	return minLat, minLon, maxLat, maxLon, true
}

// GeohashPrecisionFor returns the finest precision whose cells are still at
// least distanceMeters wide, so points that close share or neighbour a cell.
func GeohashPrecisionFor(distanceMeters float64) int {
	for precision := MaxGeohashPrecision; precision > 1; precision-- {
		if geohashCellMeters[precision] >= distanceMeters {
			return precision
		}
	}
	return 1
}

func clampPrecision(precision int) int {
	if precision < 1 {
		return 1
	}
	if precision > MaxGeohashPrecision {
		return MaxGeohashPrecision
	}
	return precision
}
