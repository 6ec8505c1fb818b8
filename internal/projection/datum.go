package projection

import "math"

const arcSecond = math.Pi / (180 * 3600)

// helmert is a 7-parameter similarity transform in geocentric space
// (position vector convention), with rotations in radians.
type helmert struct {
	tx, ty, tz float64
	rx, ry, rz float64
	m          float64 // 1 + scale
}

func newHelmert(d DatumShift) helmert {
	return helmert{
		tx: d.TX, ty: d.TY, tz: d.TZ,
		rx: d.RX * arcSecond, ry: d.RY * arcSecond, rz: d.RZ * arcSecond,
		m: 1 + d.Scale*1e-6,
	}
}

func (h helmert) rotation() [3][3]float64 {
	return [3][3]float64{
		{1, -h.rz, h.ry},
		{h.rz, 1, -h.rx},
		{-h.ry, h.rx, 1},
	}
}

func (h helmert) forward(x, y, z float64) (float64, float64, float64) {
	r := h.rotation()
	return h.tx + h.m*(r[0][0]*x+r[0][1]*y+r[0][2]*z),
		h.ty + h.m*(r[1][0]*x+r[1][1]*y+r[1][2]*z),
		h.tz + h.m*(r[2][0]*x+r[2][1]*y+r[2][2]*z)
}

// inverse solves the forward system exactly instead of negating the
// parameters, which would leave millimetre residuals.
func (h helmert) inverse(x, y, z float64) (float64, float64, float64) {
	b := [3]float64{(x - h.tx) / h.m, (y - h.ty) / h.m, (z - h.tz) / h.m}
	v := solve3(h.rotation(), b)
	return v[0], v[1], v[2]
}

func det3(a [3][3]float64) float64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// solve3 applies Cramer's rule. The rotation matrix determinant is
// 1 + rx² + ry² + rz², never zero.
func solve3(a [3][3]float64, b [3]float64) [3]float64 {
	d := det3(a)
	var out [3]float64
	for col := 0; col < 3; col++ {
		m := a
		for row := 0; row < 3; row++ {
			m[row][col] = b[row]
		}
		out[col] = det3(m) / d
	}
	return out
}

// geocentric converts geodetic radians and ellipsoidal height to ECEF metres.
func geocentric(e Ellipsoid, phi, lam, h float64) (x, y, z float64) {
	a := e.SemiMajorAxis
	e2 := e.EccentricitySquared()
	sinPhi, cosPhi := math.Sincos(phi)
	sinLam, cosLam := math.Sincos(lam)
	n := a / math.Sqrt(1-e2*sinPhi*sinPhi)

	x = (n + h) * cosPhi * cosLam
	y = (n + h) * cosPhi * sinLam
	z = (n*(1-e2) + h) * sinPhi
	return x, y, z
}

// geodetic converts ECEF metres back to geodetic radians by fixed-point
// iteration on latitude.
func geodetic(e Ellipsoid, x, y, z float64) (phi, lam, h float64) {
	a := e.SemiMajorAxis
	e2 := e.EccentricitySquared()
	lam = math.Atan2(y, x)
	p := math.Hypot(x, y)

	phi = math.Atan2(z, p*(1-e2))
	for i := 0; i < 20; i++ {
		sinPhi := math.Sin(phi)
		n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
		h = p/math.Cos(phi) - n
		next := math.Atan2(z, p*(1-e2*n/(n+h)))
		done := math.Abs(next-phi) < 1e-15
		phi = next
		if done {
			break
		}
	}

	sinPhi := math.Sin(phi)
	n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
	h = p/math.Cos(phi) - n
	return phi, lam, h
}

// datum moves geodetic coordinates between the projection's ellipsoid and WGS84.
type datum struct {
	local    Ellipsoid
	shift    helmert
	identity bool
}

func newDatum(local Ellipsoid, shift DatumShift) datum {
	return datum{
		local: local,
		shift: newHelmert(shift),
		// Without a configured shift the geographic side stays on the
		// projection's own ellipsoid.
		identity: shift.IsZero(),
	}
}

func (d datum) toWGS84(phi, lam float64) (float64, float64) {
	if d.identity {
		return phi, lam
	}
	x, y, z := geocentric(d.local, phi, lam, 0)
	x, y, z = d.shift.forward(x, y, z)
	phi, lam, _ = geodetic(WGS84, x, y, z)
	return phi, lam
}

func (d datum) fromWGS84(phi, lam float64) (float64, float64) {
	if d.identity {
		return phi, lam
	}
	x, y, z := geocentric(WGS84, phi, lam, 0)
	x, y, z = d.shift.inverse(x, y, z)
	lp, ll, _ := geodetic(d.local, x, y, z)

	// Heights are dropped on both sides, so the plain inverse is off by a
	// few centimetres. Refine until the forward shift reproduces the input.
	for i := 0; i < 8; i++ {
		fp, fl := d.toWGS84(lp, ll)
		dp, dl := phi-fp, lam-fl
		lp += dp
		ll += dl
		if math.Abs(dp) < 1e-15 && math.Abs(dl) < 1e-15 {
			break
		}
	}
	return lp, ll
}
