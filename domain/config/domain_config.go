package config

// DomainConfig holds all configurable editing rules and constraints
type DomainConfig struct {
	// Graph constraints
	MaxNodesPerGraph int
	MaxEdgesPerGraph int
	DefaultGraphName string

	// Edge constraints
	AllowSelfConnections bool
	AllowDuplicateEdges  bool

	// History
	HistoryLimit int // 0 keeps every snapshot

	// Validation settings
	DisconnectedMinNodes int // graph size at which unconnected nodes are flagged
	ExecutionMinNodes    int
	RiskMinNodes         int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerGraph: 500,
		MaxEdgesPerGraph: 2000,
		DefaultGraphName: "New Strategy",

		AllowSelfConnections: false,
		AllowDuplicateEdges:  false,

		HistoryLimit: 0,

		DisconnectedMinNodes: 1,
		ExecutionMinNodes:    2,
		RiskMinNodes:         3,
	}
}

// Clone returns a copy that can be modified without affecting the receiver
func (c *DomainConfig) Clone() *DomainConfig {
	if c == nil {
		return DefaultDomainConfig()
	}
	out := *c
	return &out
}
