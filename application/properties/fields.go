package properties

import (
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/logic"
)

// FieldKind tells the renderer which control to draw
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindNumber   FieldKind = "number"
	KindInteger  FieldKind = "integer"
	KindSelect   FieldKind = "select"
	KindToggle   FieldKind = "toggle"
	KindNodeRef  FieldKind = "node_ref"
	KindOperator FieldKind = "operator"
	KindLogic    FieldKind = "logic"
)

// Field is one control of a node's properties form
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Options  []string  `json:"options,omitempty"`
	Optional bool      `json:"optional,omitempty"`
	Value    any       `json:"value"`
}

var (
	timeframes  = []string{"1m", "5m", "15m", "1h", "4h", "1d"}
	marketTypes = []string{"spot", "perp", "future", "options"}
	orderTypes  = []string{"market", "limit"}
	priceInputs = []string{"open", "high", "low", "close", "volume"}
	sides       = []string{"buy", "sell"}
	protections = []string{"percentage", "fixed", "atr"}
	sizings     = []string{"fixed-fraction", "fixed-quantity", "percent-equity"}
)

func operators() []string {
	out := make([]string, len(logic.Operators))
	for i, op := range logic.Operators {
		out[i] = string(op)
	}
	return out
}

func comparisonFields() []Field {
	return []Field{
		{Name: "left", Label: "Left", Kind: KindNodeRef},
		{Name: "leftIsConst", Label: "Left is constant", Kind: KindToggle},
		{Name: "leftConst", Label: "Left constant", Kind: KindText},
		{Name: "operator", Label: "Operator", Kind: KindOperator, Options: operators()},
		{Name: "right", Label: "Right", Kind: KindNodeRef},
		{Name: "rightIsConst", Label: "Right is constant", Kind: KindToggle},
		{Name: "rightConst", Label: "Right constant", Kind: KindText},
	}
}

func orderFields() []Field {
	return []Field{
		{Name: "side", Label: "Side", Kind: KindSelect, Options: sides},
		{Name: "quantity", Label: "Quantity", Kind: KindNumber},
		{Name: "slippage", Label: "Slippage", Kind: KindNumber},
		{Name: "commission", Label: "Commission", Kind: KindNumber},
	}
}

func protectionFields() []Field {
	return []Field{
		{Name: "type", Label: "Type", Kind: KindSelect, Options: protections},
		{Name: "value", Label: "Value", Kind: KindNumber},
	}
}

// schema returns the form layout of a node type
func schema(t catalog.NodeType) []Field {
	switch t {
	case catalog.TypeAssetSelector:
		return []Field{
			{Name: "symbol", Label: "Symbol", Kind: KindText},
			{Name: "timeframe", Label: "Timeframe", Kind: KindSelect, Options: timeframes},
			{Name: "marketType", Label: "Market type", Kind: KindSelect, Options: marketTypes},
			{Name: "orderType", Label: "Order type", Kind: KindSelect, Options: orderTypes},
			{Name: "allocation", Label: "Allocation", Kind: KindNumber},
			{Name: "slippage", Label: "Slippage (bps)", Kind: KindNumber},
			{Name: "fee", Label: "Fee (bps)", Kind: KindNumber},
			{Name: "stopLoss", Label: "Stop loss", Kind: KindNumber, Optional: true},
			{Name: "takeProfit", Label: "Take profit", Kind: KindNumber, Optional: true},
		}
	case catalog.TypeSMA:
		return []Field{
			{Name: "period", Label: "Period", Kind: KindInteger},
			{Name: "source", Label: "Source", Kind: KindSelect, Options: priceInputs},
		}
	case catalog.TypeRSI:
		return []Field{
			{Name: "period", Label: "Period", Kind: KindInteger},
			{Name: "overbought", Label: "Overbought", Kind: KindNumber},
			{Name: "oversold", Label: "Oversold", Kind: KindNumber},
		}
	case catalog.TypeMACD:
		return []Field{
			{Name: "fastPeriod", Label: "Fast period", Kind: KindInteger},
			{Name: "slowPeriod", Label: "Slow period", Kind: KindInteger},
			{Name: "signalPeriod", Label: "Signal period", Kind: KindInteger},
		}
	case catalog.TypeAndLogic, catalog.TypeOrLogic:
		return append(comparisonFields(), Field{Name: "logic", Label: "Logic", Kind: KindLogic, Optional: true})
	case catalog.TypeComparison:
		return comparisonFields()
	case catalog.TypeMarketOrder:
		return orderFields()
	case catalog.TypeLimitOrder:
		return append(orderFields(), Field{Name: "price", Label: "Limit price", Kind: KindNumber})
	case catalog.TypeStopLoss, catalog.TypeTakeProfit:
		return protectionFields()
	case catalog.TypePositionSizing:
		return []Field{
			{Name: "method", Label: "Method", Kind: KindSelect, Options: sizings},
			{Name: "fraction", Label: "Fraction", Kind: KindNumber},
		}
	}
	return nil
}

func fieldNames(t catalog.NodeType) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range schema(t) {
		out[f.Name] = struct{}{}
	}
	return out
}

// Fields returns the form for the staged configuration with current values.
// Node reference fields list the ids of the other nodes as options.
func (e *Editor) Fields() []Field {
	values, err := catalog.ToMap(e.staged)
	if err != nil {
		values = map[string]any{}
	}
	var others []string
	for _, n := range e.host.Graph().Nodes() {
		if n.ID().String() != e.nodeID {
			others = append(others, n.ID().String())
		}
	}

	fields := schema(e.nodeType)
	for i := range fields {
		fields[i].Value = values[fields[i].Name]
		if fields[i].Kind == KindNodeRef {
			fields[i].Options = others
		}
	}
	return fields
}
