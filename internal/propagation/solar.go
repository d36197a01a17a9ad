package propagation

import (
	"math"
	"time"
)

const degToRad = math.Pi / 180

// SolarZenithDeg computes the solar zenith angle in degrees for a grid's
// center coordinate at wall-clock time t (UTC), per spec.md §4.3.
func SolarZenithDeg(coord Coordinate, t time.Time) float64 {
	utc := t.UTC()
	doy := float64(utc.YearDay())
	hour := float64(utc.Hour()) + float64(utc.Minute())/60 + float64(utc.Second())/3600

	declDeg := 23.45 * math.Sin(2*math.Pi*(284+doy)/365)

	const utcOffsetHours = 0.0
	tzCorrectionMin := 4*coord.Lon - 60*utcOffsetHours
	hourAngleDeg := 15 * (hour + tzCorrectionMin/60 - 12)

	latRad := coord.Lat * degToRad
	declRad := declDeg * degToRad
	hourAngleRad := hourAngleDeg * degToRad

	cosZenith := math.Sin(latRad)*math.Sin(declRad) +
		math.Cos(latRad)*math.Cos(declRad)*math.Cos(hourAngleRad)
	cosZenith = math.Min(1, math.Max(-1, cosZenith))

	return math.Acos(cosZenith) / degToRad
}

// IsDaytime reports whether the grid's center coordinate is in daylight at
// time t: zenith < 90°, per spec.md §4.3.
func IsDaytime(grid string, t time.Time) (bool, error) {
	coord, err := GridToCoordinates(grid)
	if err != nil {
		return false, err
	}
	return SolarZenithDeg(coord, t) < 90, nil
}
