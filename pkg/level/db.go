package level

import (
	"math"
)

// FloorDB is the level reported for silence and for non-positive amplitudes.
const FloorDB = -100.0

// FloatToDB converts an amplitude to dB, where 1.0 is 0 dB.
func FloatToDB(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return FloorDB
	}
	return 20 * math.Log10(v)
}

// DBToFloat converts dB back to an amplitude, where 0 dB is 1.0.
func DBToFloat(db float64) float64 {
	return math.Pow(10, db/20)
}
