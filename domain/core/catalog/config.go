package catalog

import (
	"bytes"
	"encoding/json"

	"strategy-editor/domain/core/logic"
	pkgerrors "strategy-editor/pkg/errors"
	"strategy-editor/pkg/validation"
)

// Config is the typed configuration of one node. The implementations are
// exactly the structs in this file, one per node type.
type Config interface {
	NodeType() NodeType
	isConfig()
}

// AssetSelectorConfig configures the market data source. Its trading fields
// are mirrored onto the saved strategy record.
type AssetSelectorConfig struct {
	Symbol     string   `json:"symbol"`
	Timeframe  string   `json:"timeframe" validate:"timeframe"`
	MarketType string   `json:"marketType" validate:"oneof=spot perp future options"`
	OrderType  string   `json:"orderType" validate:"oneof=market limit"`
	Allocation float64  `json:"allocation" validate:"gt=0,lte=1"`
	Slippage   float64  `json:"slippage" validate:"gte=0"` // bps
	Fee        float64  `json:"fee" validate:"gte=0"`      // bps
	StopLoss   *float64 `json:"stopLoss" validate:"omitempty,gt=0"`
	TakeProfit *float64 `json:"takeProfit" validate:"omitempty,gt=0"`
}

type SMAConfig struct {
	Period int    `json:"period" validate:"min=1,max=1000"`
	Source string `json:"source" validate:"oneof=open high low close volume"`
}

type RSIConfig struct {
	Period     int     `json:"period" validate:"min=1,max=1000"`
	Overbought float64 `json:"overbought" validate:"gte=0,lte=100"`
	Oversold   float64 `json:"oversold" validate:"gte=0,lte=100,ltfield=Overbought"`
}

type MACDConfig struct {
	FastPeriod   int `json:"fastPeriod" validate:"min=1,ltfield=SlowPeriod"`
	SlowPeriod   int `json:"slowPeriod" validate:"min=1,max=1000"`
	SignalPeriod int `json:"signalPeriod" validate:"min=1,max=1000"`
}

// ComparisonFields is the simple two-operand form. Left and Right name
// another node unless the matching IsConst flag selects the literal.
type ComparisonFields struct {
	Left         string         `json:"left"`
	LeftIsConst  bool           `json:"leftIsConst"`
	LeftConst    string         `json:"leftConst"`
	Operator     logic.Operator `json:"operator" validate:"operator"`
	Right        string         `json:"right"`
	RightIsConst bool           `json:"rightIsConst"`
	RightConst   string         `json:"rightConst"`
}

// LeftOperand returns the left side as a logic operand
func (c ComparisonFields) LeftOperand(port string) logic.Operand {
	if c.LeftIsConst {
		return logic.ParseLiteral(c.LeftConst)
	}
	if c.Left == "" {
		return logic.Operand{}
	}
	return logic.Ref(c.Left, port)
}

// RightOperand returns the right side as a logic operand
func (c ComparisonFields) RightOperand(port string) logic.Operand {
	if c.RightIsConst {
		return logic.ParseLiteral(c.RightConst)
	}
	if c.Right == "" {
		return logic.Operand{}
	}
	return logic.Ref(c.Right, port)
}

// LogicFields is shared by the AND and OR gates: an advanced expression tree
// plus the simple comparison form.
type LogicFields struct {
	Logic logic.Tree `json:"logic"`
	ComparisonFields
}

type AndLogicConfig struct{ LogicFields }

type OrLogicConfig struct{ LogicFields }

type ComparisonConfig struct{ ComparisonFields }

// OrderFields is shared by the order types
type OrderFields struct {
	Side       string  `json:"side" validate:"oneof=buy sell"`
	Quantity   float64 `json:"quantity" validate:"gt=0"`
	Slippage   float64 `json:"slippage" validate:"gte=0,lte=1"`
	Commission float64 `json:"commission" validate:"gte=0,lte=1"`
}

type MarketOrderConfig struct {
	OrderFields
}

type LimitOrderConfig struct {
	OrderFields
	Price float64 `json:"price" validate:"gte=0"`
}

// ProtectionFields is shared by stop-loss and take-profit. The JSON name
// "type" matches the option name saved strategies use.
type ProtectionFields struct {
	Mode  string  `json:"type" validate:"oneof=percentage fixed atr"`
	Value float64 `json:"value" validate:"gt=0"`
}

type StopLossConfig struct{ ProtectionFields }

type TakeProfitConfig struct{ ProtectionFields }

type PositionSizingConfig struct {
	Method   string  `json:"method" validate:"oneof=fixed-fraction fixed-quantity percent-equity"`
	Fraction float64 `json:"fraction" validate:"gt=0,lte=1"`
}

func (AssetSelectorConfig) NodeType() NodeType  { return TypeAssetSelector }
func (SMAConfig) NodeType() NodeType            { return TypeSMA }
func (RSIConfig) NodeType() NodeType            { return TypeRSI }
func (MACDConfig) NodeType() NodeType           { return TypeMACD }
func (AndLogicConfig) NodeType() NodeType       { return TypeAndLogic }
func (OrLogicConfig) NodeType() NodeType        { return TypeOrLogic }
func (ComparisonConfig) NodeType() NodeType     { return TypeComparison }
func (MarketOrderConfig) NodeType() NodeType    { return TypeMarketOrder }
func (LimitOrderConfig) NodeType() NodeType     { return TypeLimitOrder }
func (StopLossConfig) NodeType() NodeType       { return TypeStopLoss }
func (TakeProfitConfig) NodeType() NodeType     { return TypeTakeProfit }
func (PositionSizingConfig) NodeType() NodeType { return TypePositionSizing }

func (AssetSelectorConfig) isConfig()  {}
func (SMAConfig) isConfig()            {}
func (RSIConfig) isConfig()            {}
func (MACDConfig) isConfig()           {}
func (AndLogicConfig) isConfig()       {}
func (OrLogicConfig) isConfig()        {}
func (ComparisonConfig) isConfig()     {}
func (MarketOrderConfig) isConfig()    {}
func (LimitOrderConfig) isConfig()     {}
func (StopLossConfig) isConfig()       {}
func (TakeProfitConfig) isConfig()     {}
func (PositionSizingConfig) isConfig() {}

func defaultOrder() OrderFields {
	return OrderFields{Side: "buy", Quantity: 1, Slippage: 0.001, Commission: 0.0005}
}

// Default returns the configuration a freshly created node of type t gets
func Default(t NodeType) (Config, error) {
	switch t {
	case TypeAssetSelector:
		return AssetSelectorConfig{Timeframe: "1h", MarketType: "spot", OrderType: "market", Allocation: 1}, nil
	case TypeSMA:
		return SMAConfig{Period: 20, Source: "close"}, nil
	case TypeRSI:
		return RSIConfig{Period: 14, Overbought: 70, Oversold: 30}, nil
	case TypeMACD:
		return MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}, nil
	case TypeAndLogic:
		return AndLogicConfig{LogicFields{Logic: logic.NewTree(logic.And()), ComparisonFields: ComparisonFields{Operator: logic.OpEqual}}}, nil
	case TypeOrLogic:
		return OrLogicConfig{LogicFields{Logic: logic.NewTree(logic.Or()), ComparisonFields: ComparisonFields{Operator: logic.OpEqual}}}, nil
	case TypeComparison:
		return ComparisonConfig{ComparisonFields{Operator: logic.OpEqual}}, nil
	case TypeMarketOrder:
		return MarketOrderConfig{defaultOrder()}, nil
	case TypeLimitOrder:
		return LimitOrderConfig{OrderFields: defaultOrder()}, nil
	case TypeStopLoss:
		return StopLossConfig{ProtectionFields{Mode: "percentage", Value: 2}}, nil
	case TypeTakeProfit:
		return TakeProfitConfig{ProtectionFields{Mode: "percentage", Value: 4}}, nil
	case TypePositionSizing:
		return PositionSizingConfig{Method: "fixed-fraction", Fraction: 0.1}, nil
	}
	return nil, pkgerrors.NewValidationErrorf("unknown node type %q", t)
}

// MustDefault is Default for types known to be in the catalog
func MustDefault(t NodeType) Config {
	cfg, err := Default(t)
	if err != nil {
		panic(err)
	}
	return cfg
}

// ToMap exposes cfg as an option-name to value mapping
func ToMap(cfg Config) (map[string]any, error) {
	if cfg == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, pkgerrors.NewInternalError("encode configuration").WithCause(err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, pkgerrors.NewInternalError("decode configuration").WithCause(err)
	}
	return out, nil
}

// FromMap builds a configuration of type t from a mapping. Options missing
// from m keep their defaults and unknown options are ignored.
func FromMap(t NodeType, m map[string]any) (Config, error) {
	base, err := Default(t)
	if err != nil {
		return nil, err
	}
	return Merge(base, m)
}

// Merge returns a new configuration with patch applied over cfg. cfg itself
// is never modified.
func Merge(cfg Config, patch map[string]any) (Config, error) {
	if cfg == nil {
		return nil, pkgerrors.NewValidationError("configuration is missing")
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, pkgerrors.NewValidationError("configuration patch is not serializable").WithCause(err)
	}
	return decode(cfg, data)
}

// FromJSON decodes raw JSON options of type t over the defaults
func FromJSON(t NodeType, data []byte) (Config, error) {
	base, err := Default(t)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return base, nil
	}
	return decode(base, data)
}

func decode(base Config, data []byte) (Config, error) {
	switch c := base.(type) {
	case AssetSelectorConfig:
		return decodeOnto(c, data)
	case SMAConfig:
		return decodeOnto(c, data)
	case RSIConfig:
		return decodeOnto(c, data)
	case MACDConfig:
		return decodeOnto(c, data)
	case AndLogicConfig:
		return decodeOnto(c, data)
	case OrLogicConfig:
		return decodeOnto(c, data)
	case ComparisonConfig:
		return decodeOnto(c, data)
	case MarketOrderConfig:
		return decodeOnto(c, data)
	case LimitOrderConfig:
		return decodeOnto(c, data)
	case StopLossConfig:
		return decodeOnto(c, data)
	case TakeProfitConfig:
		return decodeOnto(c, data)
	case PositionSizingConfig:
		return decodeOnto(c, data)
	}
	return nil, pkgerrors.NewValidationErrorf("unsupported configuration %T", base)
}

// decodeOnto copies base through JSON first so that pointer fields of the
// result never alias those of base.
func decodeOnto[T Config](base T, data []byte) (Config, error) {
	seed, err := json.Marshal(base)
	if err != nil {
		return nil, pkgerrors.NewInternalError("encode configuration").WithCause(err)
	}
	var out T
	if err := json.Unmarshal(seed, &out); err != nil {
		return nil, pkgerrors.NewInternalError("copy configuration").WithCause(err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, pkgerrors.NewValidationErrorf("invalid %s configuration: %v", base.NodeType(), err)
	}
	return out, nil
}

// Validate checks field constraints and, for logic gates, the expression tree
func Validate(cfg Config) error {
	if cfg == nil {
		return pkgerrors.NewValidationError("configuration is missing")
	}
	if err := validation.GetValidator().Validate(cfg); err != nil {
		return err
	}
	if tree, ok := LogicTree(cfg); ok && !tree.IsEmpty() {
		if err := logic.Validate(tree.Root); err != nil {
			return err
		}
	}
	return nil
}

// LogicTree returns the expression tree of a logic gate configuration
func LogicTree(cfg Config) (logic.Tree, bool) {
	switch c := cfg.(type) {
	case AndLogicConfig:
		return c.Logic, true
	case OrLogicConfig:
		return c.Logic, true
	}
	return logic.Tree{}, false
}

// WithLogicTree returns a copy of a logic gate configuration using tree
func WithLogicTree(cfg Config, tree logic.Tree) (Config, error) {
	switch c := cfg.(type) {
	case AndLogicConfig:
		c.Logic = tree
		return c, nil
	case OrLogicConfig:
		c.Logic = tree
		return c, nil
	}
	return nil, pkgerrors.NewValidationErrorf("%s nodes have no logic expression", cfg.NodeType())
}

// Comparison returns the simple comparison fields of logic and comparison nodes
func Comparison(cfg Config) (ComparisonFields, bool) {
	switch c := cfg.(type) {
	case AndLogicConfig:
		return c.ComparisonFields, true
	case OrLogicConfig:
		return c.ComparisonFields, true
	case ComparisonConfig:
		return c.ComparisonFields, true
	}
	return ComparisonFields{}, false
}

// References lists the node outputs cfg depends on, from both the
// expression tree and the simple comparison form.
func References(cfg Config) []logic.NodeOutput {
	var refs []logic.NodeOutput
	if tree, ok := LogicTree(cfg); ok && !tree.IsEmpty() {
		refs = append(refs, logic.References(tree.Root)...)
	}
	if cmp, ok := Comparison(cfg); ok {
		if ref, ok := cmp.LeftOperand("result").Ref(); ok {
			refs = append(refs, ref)
		}
		if ref, ok := cmp.RightOperand("result").Ref(); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Equal compares two configurations by their option mapping
func Equal(a, b Config) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.NodeType() != b.NodeType() {
		return false
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
