package colormap

// Metric keys of the built-in scales.
const (
	TempMean      = "temp_mean"
	TempMin       = "temp_min"
	TempMax       = "temp_max"
	SnowDepth     = "snow_depth"
	Precipitation = "precipitation"
	GroundTempMin = "ground_temp_min"
)

func stop(v float64, hex string) Stop {
	return Stop{Value: v, Color: MustParseColor(hex)}
}

// BuiltinScales returns a fresh copy of the default per-metric scales.
func BuiltinScales() []MetricScale {
	return []MetricScale{
		{
			Key: TempMean, Name: "Mean temperature", Unit: "°C",
			Min: -30, Max: 30, Kind: Diverging,
			Stops: []Stop{
				stop(-30, "#08306b"),
				stop(-20, "#3182bd"),
				stop(0, "#deebf7"),
				stop(10, "#fee0d2"),
				stop(20, "#fc9272"),
				stop(30, "#de2d26"),
			},
		},
		{
			Key: TempMin, Name: "Minimum temperature", Unit: "°C",
			Min: -35, Max: 25, Kind: Diverging,
			Stops: []Stop{
				stop(-35, "#08306b"),
				stop(-25, "#2171b5"),
				stop(-10, "#6baed6"),
				stop(0, "#deebf7"),
				stop(10, "#fcbba1"),
				stop(25, "#cb181d"),
			},
		},
		{
			Key: TempMax, Name: "Maximum temperature", Unit: "°C",
			Min: -25, Max: 35, Kind: Diverging,
			Stops: []Stop{
				stop(-25, "#08519c"),
				stop(-10, "#4292c6"),
				stop(0, "#deebf7"),
				stop(10, "#fee5d9"),
				stop(20, "#fb6a4a"),
				stop(30, "#de2d26"),
				stop(35, "#a50f15"),
			},
		},
		{
			Key: SnowDepth, Name: "Snow depth", Unit: "cm",
			Min: 0, Max: 100, Kind: Sequential, Coverage: true,
			Stops: []Stop{
				stop(0, "#f7fbff"),
				stop(5, "#deebf7"),
				stop(10, "#c6dbef"),
				stop(20, "#9ecae1"),
				stop(40, "#6baed6"),
				stop(70, "#3182bd"),
				stop(100, "#08519c"),
			},
		},
		{
			Key: Precipitation, Name: "Precipitation", Unit: "mm",
			Min: 0, Max: 30, Kind: Sequential,
			Stops: []Stop{
				stop(0, "#f7fcf0"),
				stop(1, "#ccebc5"),
				stop(2.5, "#a8ddb5"),
				stop(5, "#7bccc4"),
				stop(10, "#4eb3d3"),
				stop(20, "#2b8cbe"),
				stop(30, "#08589c"),
			},
		},
		{
			Key: GroundTempMin, Name: "Ground minimum temperature", Unit: "°C",
			Min: -30, Max: 20, Kind: Diverging,
			Stops: []Stop{
				stop(-30, "#3f007d"),
				stop(-20, "#6a51a3"),
				stop(-10, "#9e9ac8"),
				stop(0, "#efedf5"),
				stop(10, "#fdae6b"),
				stop(20, "#e6550d"),
			},
		},
	}
}

// DefaultTable builds a Table from BuiltinScales.
func DefaultTable() *Table {
	t, err := NewTable(BuiltinScales()...)
	if err != nil {
		panic(err)
	}
	return t
}
