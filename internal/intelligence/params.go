package intelligence

import "sales-crm-workers/internal/common/config"

// OrderValues are the fallback deal sizes used when the area is unknown.
type OrderValues struct {
	Builder   float64
	Architect float64
	Homeowner float64
	Fallback  float64
	Villa     float64
	Tower     float64
}

// Params holds the tunable business constants of the engine.
type Params struct {
	PerAreaRate        float64
	HighValueThreshold float64
	OrderValues        OrderValues
	CoastalMarkets     []string
}

func DefaultParams() Params {
	return Params{
		PerAreaRate:        55,
		HighValueThreshold: 200000,
		OrderValues: OrderValues{
			Builder:   1000000,
			Architect: 300000,
			Homeowner: 150000,
			Fallback:  50000,
			Villa:     500000,
			Tower:     2000000,
		},
		CoastalMarkets: []string{
			"mumbai", "navi mumbai", "thane", "konkan", "ratnagiri", "alibag",
			"goa", "mangalore", "udupi", "kochi", "kerala", "chennai",
		},
	}
}

// ParamsFromConfig overlays configured values on the defaults. Zero values
// keep the default.
func ParamsFromConfig(cfg config.IntelligenceConfig) Params {
	p := DefaultParams()
	setPositive(&p.PerAreaRate, cfg.PerAreaRate)
	setPositive(&p.HighValueThreshold, cfg.HighValueThreshold)
	setPositive(&p.OrderValues.Builder, cfg.OrderValues.Builder)
	setPositive(&p.OrderValues.Architect, cfg.OrderValues.Architect)
	setPositive(&p.OrderValues.Homeowner, cfg.OrderValues.Homeowner)
	setPositive(&p.OrderValues.Fallback, cfg.OrderValues.Fallback)
	setPositive(&p.OrderValues.Villa, cfg.OrderValues.Villa)
	setPositive(&p.OrderValues.Tower, cfg.OrderValues.Tower)
	if len(cfg.CoastalMarkets) > 0 {
		p.CoastalMarkets = append([]string(nil), cfg.CoastalMarkets...)
	}
	return p
}

func setPositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
