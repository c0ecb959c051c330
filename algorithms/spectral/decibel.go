package spectral

import (
	"math"
)

// Default floors for decibel conversion
const (
	DefaultAmplitudeAmin = 1e-5
	DefaultPowerAmin     = 1e-10
	DefaultTopDB         = 80.0
)

// PowerToDB converts power values to decibels relative to ref:
//
//	10*log10(max(amin, S)) - 10*log10(max(amin, ref))
//
// With topDB > 0 the output is floored at max(output) - topDB.
func PowerToDB(power []float64, ref, amin, topDB float64) []float64 {
	db := make([]float64, len(power))
	if len(power) == 0 {
		return db
	}

	refDB := 10.0 * math.Log10(math.Max(amin, math.Abs(ref)))
	peak := math.Inf(-1)
	for i, p := range power {
		db[i] = 10.0*math.Log10(math.Max(amin, p)) - refDB
		peak = math.Max(peak, db[i])
	}

	if topDB > 0 {
		floor := peak - topDB
		for i := range db {
			db[i] = math.Max(db[i], floor)
		}
	}

	return db
}

// AmplitudeToDB converts a magnitude matrix to decibels relative to its own
// maximum, so the loudest cell is 0 dB and every other cell is negative.
// Equivalent to PowerToDB on the squared magnitudes with amin squared.
// The input is not modified.
func AmplitudeToDB(magnitude [][]float64, amin, topDB float64) [][]float64 {
	ref := 0.0
	for _, row := range magnitude {
		for _, v := range row {
			ref = math.Max(ref, math.Abs(v))
		}
	}

	refDB := 20.0 * math.Log10(math.Max(amin, ref))
	peak := math.Inf(-1)

	db := make([][]float64, len(magnitude))
	for i, row := range magnitude {
		db[i] = make([]float64, len(row))
		for j, v := range row {
			db[i][j] = 20.0*math.Log10(math.Max(amin, math.Abs(v))) - refDB
			peak = math.Max(peak, db[i][j])
		}
	}

	if topDB > 0 {
		floor := peak - topDB
		for _, row := range db {
			for j := range row {
				row[j] = math.Max(row[j], floor)
			}
		}
	}

	return db
}
