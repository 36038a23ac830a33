package intelligence

import "time"

type BranchKind string

const (
	BranchQualify        BranchKind = "qualify"
	BranchPriceObjection BranchKind = "price_objection"
	BranchGhostRisk      BranchKind = "ghost_risk"
	BranchGhosted        BranchKind = "ghosted"
	BranchClosingWindow  BranchKind = "closing_window"
	BranchDefault        BranchKind = "default"
)

// Branch identifies the cascade branch that supplied the primary
// suggestions. The set of implementations is closed.
type Branch interface {
	Kind() BranchKind
	branch()
}

// Qualify fires while qualification is pending.
type Qualify struct {
	MissingFields []string `json:"missingFields"`
}

// PriceObjection fires on a price objection from a qualified lead.
type PriceObjection struct {
	Trigger string `json:"trigger"`
}

type GhostRisk struct {
	Inactive time.Duration `json:"inactive"`
}

type Ghosted struct {
	Inactive time.Duration `json:"inactive"`
}

// ClosingWindow fires when no primary branch did but the buyer is actively
// engaged.
type ClosingWindow struct {
	QuoteSent        bool `json:"quoteSent"`
	SampleDelivered  bool `json:"sampleDelivered"`
	ActiveDiscussion bool `json:"activeDiscussion"`
}

type Default struct{}

func (Qualify) Kind() BranchKind        { return BranchQualify }
func (PriceObjection) Kind() BranchKind { return BranchPriceObjection }
func (GhostRisk) Kind() BranchKind      { return BranchGhostRisk }
func (Ghosted) Kind() BranchKind        { return BranchGhosted }
func (ClosingWindow) Kind() BranchKind  { return BranchClosingWindow }
func (Default) Kind() BranchKind        { return BranchDefault }

func (Qualify) branch()        {}
func (PriceObjection) branch() {}
func (GhostRisk) branch()      {}
func (Ghosted) branch()        {}
func (ClosingWindow) branch()  {}
func (Default) branch()        {}
