package projection

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// apexTolerance is the distance in metres under which a planar point is
// treated as the cone apex (the pole).
const apexTolerance = 1e-6

// Projector is a Lambert Conformal Conic (1SP) projection with its cone
// constants precomputed. It is immutable and safe for concurrent use.
type Projector struct {
	params Parameters
	datum  datum

	a, e, e2 float64
	k0       float64
	lam0     float64
	fe, fn   float64

	n  float64 // cone constant, sin(φ0)
	f  float64
	r0 float64 // radius of the central parallel
}

// NewProjector validates params and precomputes the cone constants.
func NewProjector(params Parameters) (*Projector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	el := params.Ellipsoid
	e2 := el.EccentricitySquared()
	e := math.Sqrt(e2)

	phi0 := radians(params.CentralParallel)
	sin0, cos0 := math.Sincos(phi0)
	m0 := cos0 / math.Sqrt(1-e2*sin0*sin0)
	t0 := isometricT(phi0, e)

	n := sin0
	f := m0 / (n * math.Pow(t0, n))

	return &Projector{
		params: params,
		datum:  newDatum(el, params.DatumShift),
		a:      el.SemiMajorAxis,
		e:      e,
		e2:     e2,
		k0:     params.ScaleFactor,
		lam0:   radians(params.CentralMeridian),
		fe:     params.FalseEasting,
		fn:     params.FalseNorthing,
		n:      n,
		f:      f,
		r0:     el.SemiMajorAxis * f * math.Pow(t0, n) * params.ScaleFactor,
	}, nil
}

// Parameters returns the parameter set the projector was built from.
func (p *Projector) Parameters() Parameters {
	return p.params
}

// InEnvelope reports whether ll lies inside the country's soft validity envelope.
func (p *Projector) InEnvelope(ll orb.Point) bool {
	return p.params.Envelope.Contains(ll)
}

// ToGeographic converts a planar (easting, northing) point to WGS84
// longitude/latitude in degrees.
func (p *Projector) ToGeographic(pt orb.Point) (orb.Point, error) {
	if !finite(pt.X(), pt.Y()) {
		return orb.Point{}, errors.Wrapf(ErrOutOfDomain, "non-finite planar point %v", pt)
	}

	phi, lam, err := p.inverse(pt.X(), pt.Y())
	if err != nil {
		return orb.Point{}, err
	}

	phi, lam = p.datum.toWGS84(phi, lam)
	ll := orb.Point{degrees(normalizeAngle(lam)), degrees(phi)}
	if !finite(ll.Lon(), ll.Lat()) || math.Abs(ll.Lat()) >= 90 {
		return orb.Point{}, errors.Wrapf(ErrOutOfDomain, "planar point %v maps to latitude %v", pt, ll.Lat())
	}

	return ll, nil
}

// ToPlanar converts WGS84 longitude/latitude in degrees to planar
// (easting, northing).
func (p *Projector) ToPlanar(ll orb.Point) (orb.Point, error) {
	if err := CheckGeographic(ll); err != nil {
		return orb.Point{}, err
	}

	phi, lam := p.datum.fromWGS84(radians(ll.Lat()), radians(ll.Lon()))
	if math.Abs(phi) >= math.Pi/2 {
		return orb.Point{}, errors.Wrapf(ErrOutOfDomain, "latitude %v on local datum", degrees(phi))
	}

	x, y := p.forward(phi, lam)
	if !finite(x, y) {
		return orb.Point{}, errors.Wrapf(ErrOutOfDomain, "geographic point %v not projectable", ll)
	}

	return orb.Point{x, y}, nil
}

func (p *Projector) forward(phi, lam float64) (x, y float64) {
	t := isometricT(phi, p.e)
	r := p.a * p.f * math.Pow(t, p.n) * p.k0
	theta := p.n * normalizeAngle(lam-p.lam0)

	sinT, cosT := math.Sincos(theta)
	return p.fe + r*sinT, p.fn + p.r0 - r*cosT
}

func (p *Projector) inverse(x, y float64) (phi, lam float64, err error) {
	dx := x - p.fe
	dy := p.r0 - (y - p.fn)

	sign := 1.0
	if p.n < 0 {
		sign = -1
	}

	r := sign * math.Hypot(dx, dy)
	if math.Abs(r) < apexTolerance {
		return 0, 0, errors.Wrapf(ErrOutOfDomain, "planar point (%v, %v) is the cone apex", x, y)
	}

	theta := math.Atan2(sign*dx, sign*dy)
	dlam := theta / p.n
	if math.Abs(dlam) > math.Pi {
		return 0, 0, errors.Wrapf(ErrOutOfDomain, "planar point (%v, %v) is beyond the antimeridian", x, y)
	}

	t := math.Pow(r/(p.a*p.k0*p.f), 1/p.n)
	chi := math.Pi/2 - 2*math.Atan(t)
	phi = conformalToGeodetic(chi, p.e2)
	if !finite(phi) || math.Abs(phi) >= math.Pi/2 {
		return 0, 0, errors.Wrapf(ErrOutOfDomain, "planar point (%v, %v) maps to a pole", x, y)
	}

	return phi, p.lam0 + dlam, nil
}

// isometricT is the t function of the conformal conic:
// tan(π/4 - φ/2) / ((1 - e sinφ)/(1 + e sinφ))^(e/2).
func isometricT(phi, e float64) float64 {
	es := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), e/2)
}

// conformalToGeodetic recovers geodetic latitude from conformal latitude χ
// with the standard series in e².
func conformalToGeodetic(chi, e2 float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	e8 := e6 * e2

	return chi +
		(e2/2+5*e4/24+e6/12+13*e8/360)*math.Sin(2*chi) +
		(7*e4/48+29*e6/240+811*e8/11520)*math.Sin(4*chi) +
		(7*e6/120+81*e8/1120)*math.Sin(6*chi) +
		(4279*e8/161280)*math.Sin(8*chi)
}

// CheckGeographic rejects longitude/latitude pairs outside the ellipsoid's
// parameter range. Being outside a country envelope is not an error.
func CheckGeographic(ll orb.Point) error {
	lon, lat := ll.Lon(), ll.Lat()
	switch {
	case !finite(lon, lat):
		return errors.Wrapf(ErrOutOfDomain, "non-finite geographic point %v", ll)
	case math.Abs(lat) >= 90:
		return errors.Wrapf(ErrOutOfDomain, "latitude %v", lat)
	case math.Abs(lon) > 180:
		return errors.Wrapf(ErrOutOfDomain, "longitude %v", lon)
	}
	return nil
}

// ToGeographic converts a planar point with the given parameters.
func ToGeographic(pt orb.Point, params Parameters) (orb.Point, error) {
	p, err := NewProjector(params)
	if err != nil {
		return orb.Point{}, err
	}
	return p.ToGeographic(pt)
}

// ToPlanar converts a geographic point with the given parameters.
func ToPlanar(ll orb.Point, params Parameters) (orb.Point, error) {
	p, err := NewProjector(params)
	if err != nil {
		return orb.Point{}, err
	}
	return p.ToPlanar(ll)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// normalizeAngle wraps radians into [-π, π].
func normalizeAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
