package agent

import (
	"time"

	"sales-crm-workers/internal/common/config"
)

// Margins is the markup schedule over unit cost, tiered by order area.
type Margins struct {
	SmallOrderBelow float64
	BulkOrderAbove  float64
	Small           float64
	Standard        float64
	Bulk            float64
}

// Typing controls the simulated human response time.
type Typing struct {
	PerChar   time.Duration
	Thinking  time.Duration
	MaxJitter time.Duration
	Max       time.Duration
	Casual    time.Duration
}

type Params struct {
	Name                 string
	EscalationDealValue  float64
	EscalationCategories []string
	SampleCharge         float64
	DefaultCoverage      float64
	StoreAddress         string
	Margins              Margins
	Typing               Typing
}

func DefaultParams() Params {
	return Params{
		Name:                 "SalesHero",
		EscalationDealValue:  1000000,
		EscalationCategories: []string{"flexible cladding"},
		SampleCharge:         500,
		DefaultCoverage:      5.33,
		StoreAddress:         "our Experience Centre in Kharghar, Navi Mumbai",
		Margins: Margins{
			SmallOrderBelow: 600,
			BulkOrderAbove:  5000,
			Small:           0.39,
			Standard:        0.29,
			Bulk:            0.19,
		},
		Typing: Typing{
			PerChar:   250 * time.Millisecond,
			Thinking:  1500 * time.Millisecond,
			MaxJitter: 2000 * time.Millisecond,
			Max:       15 * time.Second,
			Casual:    3 * time.Second,
		},
	}
}

// ParamsFromConfig overlays configured values on the defaults.
func ParamsFromConfig(cfg config.AgentConfig) Params {
	p := DefaultParams()
	if cfg.Name != "" {
		p.Name = cfg.Name
	}
	if cfg.EscalationDealValue > 0 {
		p.EscalationDealValue = cfg.EscalationDealValue
	}
	if len(cfg.EscalationCategories) > 0 {
		p.EscalationCategories = append([]string(nil), cfg.EscalationCategories...)
	}
	if cfg.SampleCharge > 0 {
		p.SampleCharge = cfg.SampleCharge
	}
	if cfg.DefaultCoverage > 0 {
		p.DefaultCoverage = cfg.DefaultCoverage
	}
	if cfg.StoreAddress != "" {
		p.StoreAddress = cfg.StoreAddress
	}

	m := cfg.Margins
	if m.SmallOrderBelow > 0 && m.BulkOrderAbove > 0 {
		p.Margins.SmallOrderBelow = m.SmallOrderBelow
		p.Margins.BulkOrderAbove = m.BulkOrderAbove
	}
	if m.Small > 0 {
		p.Margins.Small = m.Small
	}
	if m.Standard > 0 {
		p.Margins.Standard = m.Standard
	}
	if m.Bulk > 0 {
		p.Margins.Bulk = m.Bulk
	}

	setMillis(&p.Typing.PerChar, cfg.Typing.PerChar)
	setMillis(&p.Typing.Thinking, cfg.Typing.Thinking)
	setMillis(&p.Typing.MaxJitter, cfg.Typing.MaxJitter)
	setMillis(&p.Typing.Max, cfg.Typing.Max)
	setMillis(&p.Typing.Casual, cfg.Typing.Casual)
	return p
}

func setMillis(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
