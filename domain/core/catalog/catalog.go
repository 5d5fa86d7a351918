// Package catalog defines the closed set of node types a strategy graph may
// contain: their ports, categories and typed configuration.
package catalog

import (
	pkgerrors "strategy-editor/pkg/errors"
)

// NodeType names an entry of the node catalog
type NodeType string

const (
	TypeAssetSelector  NodeType = "asset-selector"
	TypeSMA            NodeType = "sma-indicator"
	TypeRSI            NodeType = "rsi-indicator"
	TypeMACD           NodeType = "macd-indicator"
	TypeAndLogic       NodeType = "and-logic"
	TypeOrLogic        NodeType = "or-logic"
	TypeComparison     NodeType = "comparison"
	TypeMarketOrder    NodeType = "market-order"
	TypeLimitOrder     NodeType = "limit-order"
	TypeStopLoss       NodeType = "stop-loss"
	TypeTakeProfit     NodeType = "take-profit"
	TypePositionSizing NodeType = "position-sizing"
)

// Category groups node types for validation and the palette
type Category string

const (
	CategorySource     Category = "source"
	CategoryIndicator  Category = "indicator"
	CategoryLogic      Category = "logic"
	CategoryComparison Category = "comparison"
	CategoryOrder      Category = "order"
	CategoryRisk       Category = "risk"
	CategorySizing     Category = "sizing"
)

// Entry describes one node type
type Entry struct {
	Type        NodeType `json:"type"`
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
}

// entries is in palette order
var entries = []Entry{
	{TypeAssetSelector, CategorySource, "Asset", "Select asset", nil, []string{"data"}},
	{TypeSMA, CategoryIndicator, "SMA", "Simple Moving Average", []string{"data"}, []string{"result"}},
	{TypeRSI, CategoryIndicator, "RSI", "Relative Strength Index", []string{"data"}, []string{"result"}},
	{TypeMACD, CategoryIndicator, "MACD", "MACD Indicator", []string{"data"}, []string{"result"}},
	{TypeAndLogic, CategoryLogic, "AND", "AND Logic", []string{"cond1", "cond2"}, []string{"result"}},
	{TypeOrLogic, CategoryLogic, "OR", "OR Logic", []string{"cond1", "cond2"}, []string{"result"}},
	{TypeComparison, CategoryComparison, "Comparison", "Comparison Node", []string{"left", "right"}, []string{"result"}},
	{TypeMarketOrder, CategoryOrder, "Market Order", "Market Order", []string{"signal"}, []string{"order"}},
	{TypeLimitOrder, CategoryOrder, "Limit Order", "Limit Order", []string{"signal"}, []string{"order"}},
	{TypeStopLoss, CategoryRisk, "Stop Loss", "Stop Loss", []string{"order"}, []string{"protectedOrder"}},
	{TypeTakeProfit, CategoryRisk, "Take Profit", "Take Profit", []string{"order"}, []string{"protectedOrder"}},
	{TypePositionSizing, CategorySizing, "Position Sizing", "Position Sizing", []string{"order"}, []string{"sizedOrder"}},
}

var byType = func() map[NodeType]Entry {
	m := make(map[NodeType]Entry, len(entries))
	for _, e := range entries {
		m[e.Type] = e
	}
	return m
}()

// All returns every entry in palette order. The result is a copy.
func All() []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.clone()
	}
	return out
}

// Lookup returns the entry for t
func Lookup(t NodeType) (Entry, bool) {
	e, ok := byType[t]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// MustLookup is Lookup for types already known to be valid
func MustLookup(t NodeType) Entry {
	e, ok := Lookup(t)
	if !ok {
		panic("unknown node type " + string(t))
	}
	return e
}

// ParseNodeType validates a type name against the catalog
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if _, ok := byType[t]; !ok {
		return "", pkgerrors.NewValidationErrorf("unknown node type %q", s)
	}
	return t, nil
}

// Valid reports whether t is in the catalog
func (t NodeType) Valid() bool {
	_, ok := byType[t]
	return ok
}

// Category returns the category of t, or "" when unknown
func (t NodeType) Category() Category {
	return byType[t].Category
}

// HasInput reports whether port is one of the entry's input ports
func (e Entry) HasInput(port string) bool { return contains(e.Inputs, port) }

// HasOutput reports whether port is one of the entry's output ports
func (e Entry) HasOutput(port string) bool { return contains(e.Outputs, port) }

func (e Entry) clone() Entry {
	e.Inputs = append([]string(nil), e.Inputs...)
	e.Outputs = append([]string(nil), e.Outputs...)
	return e
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
