package domain

import "math"

// Amounts travel as THB floats on the wire and as satang integers internally.

func SatangFromTHB(thb float64) int64 {
	if thb <= 0 {
		return 0
	}
	return int64(math.Round(thb * 100))
}

func THBFromSatang(satang int64) float64 {
	return float64(satang) / 100
}
