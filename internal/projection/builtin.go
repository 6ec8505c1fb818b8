package projection

// Clarke 1880 variants used by the North African Lambert grids.
var (
	Clarke1880IGN = Ellipsoid{SemiMajorAxis: 6378249.2, InverseFlattening: 293.466021293627}
	Clarke1880RGS = Ellipsoid{SemiMajorAxis: 6378249.145, InverseFlattening: 293.465}
)

// builtin holds the parameter sets shipped with the binary.
// Values follow the EPSG definitions named in each entry.
var builtin = []Parameters{
	{
		// EPSG:26191
		Code:            "MA",
		Name:            "Merchich / Nord Maroc",
		CentralMeridian: -5.4,
		CentralParallel: 33.3,
		FalseEasting:    500000,
		FalseNorthing:   300000,
		ScaleFactor:     0.999625769,
		Ellipsoid:       Clarke1880IGN,
		DatumShift:      DatumShift{TX: 31, TY: 146, TZ: 47},
		Envelope:        Envelope{MinLon: -9.85, MinLat: 31.49, MaxLon: -1.01, MaxLat: 35.97},
	},
	{
		// EPSG:22391
		Code:            "TN",
		Name:            "Carthage / Nord Tunisie",
		CentralMeridian: 9.9,
		CentralParallel: 36,
		FalseEasting:    500000,
		FalseNorthing:   300000,
		ScaleFactor:     0.999625544,
		Ellipsoid:       Clarke1880IGN,
		DatumShift:      DatumShift{TX: -263, TY: 6, TZ: 431},
		Envelope:        Envelope{MinLon: 8.18, MinLat: 34.65, MaxLon: 11.77, MaxLat: 37.7},
	},
	{
		// EPSG:30791
		Code:            "DZ",
		Name:            "Nord Sahara 1959 / Nord Algerie",
		CentralMeridian: 2.7,
		CentralParallel: 36,
		FalseEasting:    500000,
		FalseNorthing:   300000,
		ScaleFactor:     0.999625544,
		Ellipsoid:       Clarke1880RGS,
		DatumShift: DatumShift{
			TX: -209.3622, TY: -87.8162, TZ: 404.6198,
			RX: 0.0046, RY: 3.4784, RZ: 0.5805,
			Scale: -1.4547,
		},
		Envelope: Envelope{MinLon: -2.22, MinLat: 34.64, MaxLon: 8.64, MaxLat: 37.14},
	},
}

// Builtin returns a registry with the shipped parameter sets.
func Builtin() *Registry {
	r, err := NewRegistry(builtin...)
	if err != nil {
		panic(err)
	}
	return r
}
