package ports

import (
	"time"

	"github.com/shopspring/decimal"

	"strategy-editor/domain/core/valueobjects"
)

func init() {
	// The strategies table stores allocation, slippage and fee as numeric
	// columns, so decimals go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ComponentDTO is the serialized form of a node
type ComponentDTO struct {
	ID         string                `json:"id"`
	Type       string                `json:"type"`
	Name       string                `json:"name"`
	Position   valueobjects.Position `json:"position"`
	Properties map[string]any        `json:"properties"`
	Inputs     []string              `json:"inputs"`
	Outputs    []string              `json:"outputs"`
}

// ConnectionDTO is the serialized form of an edge
type ConnectionDTO struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	To         string `json:"to"`
	FromOutput string `json:"fromOutput"`
	ToInput    string `json:"toInput"`
}

// StrategyDocument is the file format used by import and export
type StrategyDocument struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Components  []ComponentDTO  `json:"components"`
	Connections []ConnectionDTO `json:"connections"`
	IsValid     bool            `json:"isValid"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RecordData carries the editor-side metadata of a record
type RecordData struct {
	ID        string    `json:"id"`
	IsValid   bool      `json:"isValid"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordComponents wraps the node list the way the backend stores it
type RecordComponents struct {
	Nodes []ComponentDTO `json:"nodes"`
}

// RecordConnections wraps the edge list the way the backend stores it
type RecordConnections struct {
	Edges []ConnectionDTO `json:"edges"`
}

// IndicatorConfig summarises one indicator node for the execution side
type IndicatorConfig struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// StrategyRecord is the backend representation of a strategy. The trading
// fields mirror the asset selector's configuration.
type StrategyRecord struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Data        RecordData        `json:"data"`
	Components  RecordComponents  `json:"components"`
	Connections RecordConnections `json:"connections"`
	MarketType  string            `json:"market_type"`
	OrderType   string            `json:"order_type"`
	Allocation  decimal.Decimal   `json:"allocation"`
	Slippage    decimal.Decimal   `json:"slippage"`
	Fee         decimal.Decimal   `json:"fee"`
	StopLoss    *decimal.Decimal  `json:"stop_loss"`
	TakeProfit  *decimal.Decimal  `json:"take_profit"`
	Indicators  []IndicatorConfig `json:"indicators"`
}

// Key returns the identifier the record is stored under
func (r StrategyRecord) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Data.ID
}
