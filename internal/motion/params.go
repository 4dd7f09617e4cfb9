package motion

import "turntable/internal/config"

// Params controls corner detection and tracking.
type Params struct {
	MaxFeatures   int
	QualityLevel  float64
	MinDistance   float64
	BlockSize     int
	WindowSize    int
	MaxLevel      int
	MaxIterations int
	Epsilon       float64
}

// DefaultParams returns the tracker parameters used for turntable footage.
func DefaultParams() Params {
	return Params{
		MaxFeatures:   100,
		QualityLevel:  0.3,
		MinDistance:   7,
		BlockSize:     7,
		WindowSize:    15,
		MaxLevel:      2,
		MaxIterations: 10,
		Epsilon:       0.03,
	}
}

// ParamsFromConfig maps the [motion] config section onto Params.
func ParamsFromConfig(cfg config.Motion) Params {
	return Params{
		MaxFeatures:   cfg.MaxFeatures,
		QualityLevel:  cfg.QualityLevel,
		MinDistance:   cfg.MinDistance,
		BlockSize:     cfg.BlockSize,
		WindowSize:    cfg.WindowSize,
		MaxLevel:      cfg.MaxLevel,
		MaxIterations: cfg.MaxIterations,
		Epsilon:       cfg.Epsilon,
	}
}
