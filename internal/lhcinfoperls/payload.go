package lhcinfoperls

import (
	"fmt"
)

// ObjectType is the name under which LHCInfoPerLS payloads are stored.
const ObjectType = "LHCInfoPerLS"

// LHCInfoPerLS holds the LHC machine conditions valid for a lumisection. The zero value is the empty payload,
// valid between fills.
type LHCInfoPerLS struct {
	FillNumber     uint16  `json:"fillNumber"`
	RunNumber      uint32  `json:"runNumber"`
	CrossingAngleX float32 `json:"crossingAngleX"`
	CrossingAngleY float32 `json:"crossingAngleY"`
	BetaStarX      float32 `json:"betaStarX"`
	BetaStarY      float32 `json:"betaStarY"`
	LumiSection    uint32  `json:"lumiSection"`
}

// Equal reports whether two payloads carry the same conditions. The lumisection is not compared: a payload that
// only differs from its predecessor by lumisection is redundant.
func (p LHCInfoPerLS) Equal(other LHCInfoPerLS) bool {
	return p.FillNumber == other.FillNumber &&
		p.RunNumber == other.RunNumber &&
		p.CrossingAngleX == other.CrossingAngleX &&
		p.CrossingAngleY == other.CrossingAngleY &&
		p.BetaStarX == other.BetaStarX &&
		p.BetaStarY == other.BetaStarY
}

// IsEmpty returns true if the payload does not belong to a fill.
func (p LHCInfoPerLS) IsEmpty() bool {
	return p.FillNumber == 0
}

func (p LHCInfoPerLS) String() string {
	return fmt.Sprintf("fill %d run %d LS %d crossingAngle (%g, %g) betaStar (%g, %g)",
		p.FillNumber, p.RunNumber, p.LumiSection, p.CrossingAngleX, p.CrossingAngleY, p.BetaStarX, p.BetaStarY)
}
