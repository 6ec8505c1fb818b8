// Package projection converts between Lambert Conformal Conic planar coordinates
// and WGS84 longitude/latitude.
//
// Every conversion takes its Parameters explicitly. There is no package-level
// "current projection", so batches for different countries can run concurrently.
package projection

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Ellipsoid describes a reference ellipsoid.
// An InverseFlattening of zero describes a sphere.
type Ellipsoid struct {
	SemiMajorAxis     float64 `yaml:"a" json:"a"`
	InverseFlattening float64 `yaml:"rf" json:"rf"`
}

// WGS84 is the target ellipsoid of every geographic output.
var WGS84 = Ellipsoid{SemiMajorAxis: 6378137.0, InverseFlattening: 298.257223563}

// Flattening returns f, zero for a sphere.
func (e Ellipsoid) Flattening() float64 {
	if e.InverseFlattening == 0 {
		return 0
	}
	return 1 / e.InverseFlattening
}

// EccentricitySquared returns e² = f(2-f).
func (e Ellipsoid) EccentricitySquared() float64 {
	f := e.Flattening()
	return f * (2 - f)
}

// DatumShift holds 7-parameter Helmert values to WGS84 in the position vector
// convention (the one PROJ uses for +towgs84).
type DatumShift struct {
	TX float64 `yaml:"tx" json:"tx"` // metres
	TY float64 `yaml:"ty" json:"ty"`
	TZ float64 `yaml:"tz" json:"tz"`
	RX float64 `yaml:"rx" json:"rx"` // arc-seconds
	RY float64 `yaml:"ry" json:"ry"`
	RZ float64 `yaml:"rz" json:"rz"`
	// Scale is the scale difference in parts per million.
	Scale float64 `yaml:"scale" json:"scale"`
}

// IsZero reports whether no shift is configured.
func (d DatumShift) IsZero() bool {
	return d == DatumShift{}
}

// Envelope is the soft validity area of a country, in degrees.
type Envelope struct {
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
}

// IsZero reports whether the envelope is unset.
func (e Envelope) IsZero() bool {
	return e == Envelope{}
}

// Contains reports whether ll lies inside the envelope. An unset envelope
// contains everything.
func (e Envelope) Contains(ll orb.Point) bool {
	if e.IsZero() {
		return true
	}
	return ll.Lon() >= e.MinLon && ll.Lon() <= e.MaxLon &&
		ll.Lat() >= e.MinLat && ll.Lat() <= e.MaxLat
}

// Bound returns the envelope as an orb.Bound.
func (e Envelope) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.MinLon, e.MinLat},
		Max: orb.Point{e.MaxLon, e.MaxLat},
	}
}

// Parameters is the immutable definition of a one-standard-parallel
// Lambert Conformal Conic projection for a country.
type Parameters struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	CentralMeridian float64 `yaml:"central_meridian" json:"central_meridian"` // degrees
	CentralParallel float64 `yaml:"central_parallel" json:"central_parallel"` // degrees
	FalseEasting    float64 `yaml:"false_easting" json:"false_easting"`
	FalseNorthing   float64 `yaml:"false_northing" json:"false_northing"`
	ScaleFactor     float64 `yaml:"scale_factor" json:"scale_factor"`

	Ellipsoid  Ellipsoid  `yaml:"ellipsoid" json:"ellipsoid"`
	DatumShift DatumShift `yaml:"datum_shift,omitempty" json:"datum_shift,omitempty"`
	Envelope   Envelope   `yaml:"envelope,omitempty" json:"envelope,omitempty"`
}

// Validate checks that the parameters define a usable cone.
func (p Parameters) Validate() error {
	switch {
	case p.Code == "":
		return errors.Wrap(ErrInvalidParameters, "empty country code")
	case !finite(p.CentralMeridian, p.CentralParallel, p.FalseEasting, p.FalseNorthing, p.ScaleFactor):
		return errors.Wrapf(ErrInvalidParameters, "%s: non-finite value", p.Code)
	case math.Abs(p.CentralMeridian) > 180:
		return errors.Wrapf(ErrInvalidParameters, "%s: central meridian %v out of range", p.Code, p.CentralMeridian)
	case p.CentralParallel == 0 || math.Abs(p.CentralParallel) >= 90:
		// n = sin(φ0) must be a proper cone constant.
		return errors.Wrapf(ErrInvalidParameters, "%s: central parallel %v out of range", p.Code, p.CentralParallel)
	case p.ScaleFactor <= 0:
		return errors.Wrapf(ErrInvalidParameters, "%s: scale factor must be positive", p.Code)
	case p.Ellipsoid.SemiMajorAxis <= 0:
		return errors.Wrapf(ErrInvalidParameters, "%s: semi-major axis must be positive", p.Code)
	case p.Ellipsoid.InverseFlattening != 0 && p.Ellipsoid.InverseFlattening <= 1:
		return errors.Wrapf(ErrInvalidParameters, "%s: inverse flattening %v", p.Code, p.Ellipsoid.InverseFlattening)
	}

	if !p.Envelope.IsZero() {
		e := p.Envelope
		if e.MinLon > e.MaxLon || e.MinLat > e.MaxLat {
			return errors.Wrapf(ErrInvalidParameters, "%s: inverted envelope", p.Code)
		}
	}

	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
