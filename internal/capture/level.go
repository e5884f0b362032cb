package capture

import "math"

// Metering range in dBFS.
const (
	FloorDB   = -50.0
	CeilingDB = 0.0
)

// PowerDB returns the RMS power of samples in dBFS. Silence maps to the floor.
func PowerDB(samples []int16) float64 {
	if len(samples) == 0 {
		return FloorDB
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return FloorDB
	}
	return 20 * math.Log10(rms)
}

// Normalize maps a dBFS value from [FloorDB, CeilingDB] onto [0,1].
func Normalize(db float64) float64 {
	if math.IsNaN(db) || db <= FloorDB {
		return 0
	}
	if db >= CeilingDB {
		return 1
	}
	return (db - FloorDB) / (CeilingDB - FloorDB)
}
