// Package mapper converts between the strategy graph and its stored forms.
// The mapping is lossless for everything the editor owns: identity, name,
// description, nodes with their configuration, edges and timestamps.
package mapper

import (
	"github.com/shopspring/decimal"

	"strategy-editor/application/ports"
	"strategy-editor/domain/config"
	"strategy-editor/domain/core/aggregates"
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/entities"
	"strategy-editor/domain/core/valueobjects"
	pkgerrors "strategy-editor/pkg/errors"
)

var indicatorNames = map[catalog.NodeType]string{
	catalog.TypeSMA:  "SMA",
	catalog.TypeRSI:  "RSI",
	catalog.TypeMACD: "MACD",
}

// ToRecord builds the backend record for g
func ToRecord(g *aggregates.Graph, isValid bool) ports.StrategyRecord {
	components, connections := toDTOs(g)
	rec := ports.StrategyRecord{
		ID:          g.ID().String(),
		Name:        g.Name(),
		Description: g.Description(),
		Data: ports.RecordData{
			ID:        g.ID().String(),
			IsValid:   isValid,
			CreatedAt: g.CreatedAt(),
			UpdatedAt: g.UpdatedAt(),
		},
		Components:  ports.RecordComponents{Nodes: components},
		Connections: ports.RecordConnections{Edges: connections},
		Indicators:  []ports.IndicatorConfig{},
	}

	asset := catalog.MustDefault(catalog.TypeAssetSelector).(catalog.AssetSelectorConfig)
	if nodes := g.NodesOfCategory(catalog.CategorySource); len(nodes) > 0 {
		if cfg, ok := nodes[0].Config().(catalog.AssetSelectorConfig); ok {
			asset = cfg
		}
	}
	rec.MarketType = asset.MarketType
	rec.OrderType = asset.OrderType
	rec.Allocation = decimal.NewFromFloat(asset.Allocation)
	rec.Slippage = decimal.NewFromFloat(asset.Slippage)
	rec.Fee = decimal.NewFromFloat(asset.Fee)
	rec.StopLoss = optionalDecimal(asset.StopLoss)
	rec.TakeProfit = optionalDecimal(asset.TakeProfit)

	for _, n := range g.NodesOfCategory(catalog.CategoryIndicator) {
		rec.Indicators = append(rec.Indicators, ports.IndicatorConfig{
			Type:   indicatorNames[n.Type()],
			Params: n.ConfigMap(),
		})
	}
	return rec
}

// FromRecord rebuilds a graph from a backend record. data.id wins when it
// parses, then the top-level id. Otherwise a new id is minted; minted
// reports whether that happened.
func FromRecord(rec ports.StrategyRecord, rules *config.DomainConfig) (g *aggregates.Graph, minted bool, err error) {
	id := rec.Data.ID
	if _, perr := valueobjects.ParseGraphID(id); perr != nil {
		id = rec.ID
	}
	return build(id, rec.Name, rec.Description, rec.Components.Nodes, rec.Connections.Edges,
		rec.Data, rules)
}

// ToDocument builds the export file for g
func ToDocument(g *aggregates.Graph, isValid bool) ports.StrategyDocument {
	components, connections := toDTOs(g)
	return ports.StrategyDocument{
		ID:          g.ID().String(),
		Name:        g.Name(),
		Description: g.Description(),
		Components:  components,
		Connections: connections,
		IsValid:     isValid,
		CreatedAt:   g.CreatedAt(),
		UpdatedAt:   g.UpdatedAt(),
	}
}

// FromDocument rebuilds a graph from an imported file
func FromDocument(doc ports.StrategyDocument, rules *config.DomainConfig) (*aggregates.Graph, bool, error) {
	return build(doc.ID, doc.Name, doc.Description, doc.Components, doc.Connections,
		ports.RecordData{CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}, rules)
}

func build(
	rawID, name, description string,
	components []ports.ComponentDTO,
	connections []ports.ConnectionDTO,
	data ports.RecordData,
	rules *config.DomainConfig,
) (*aggregates.Graph, bool, error) {
	id, minted := valueobjects.GraphIDOrNew(rawID)

	nodes := make([]*entities.Node, 0, len(components))
	for i, c := range components {
		n, err := nodeFromDTO(c)
		if err != nil {
			return nil, false, pkgerrors.Wrapf(err, "component %d", i)
		}
		nodes = append(nodes, n)
	}

	edges := make([]*entities.Edge, 0, len(connections))
	for i, c := range connections {
		e, err := edgeFromDTO(c)
		if err != nil {
			return nil, false, pkgerrors.Wrapf(err, "connection %d", i)
		}
		edges = append(edges, e)
	}

	g, err := aggregates.Reconstruct(id, name, description, nodes, edges, data.CreatedAt, data.UpdatedAt, rules)
	if err != nil {
		return nil, false, err
	}
	return g, minted, nil
}

func toDTOs(g *aggregates.Graph) ([]ports.ComponentDTO, []ports.ConnectionDTO) {
	components := make([]ports.ComponentDTO, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		components = append(components, ports.ComponentDTO{
			ID:         n.ID().String(),
			Type:       string(n.Type()),
			Name:       n.Name(),
			Position:   n.Position(),
			Properties: n.ConfigMap(),
			Inputs:     nonNil(n.Inputs()),
			Outputs:    nonNil(n.Outputs()),
		})
	}
	connections := make([]ports.ConnectionDTO, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		connections = append(connections, ports.ConnectionDTO{
			ID:         e.ID().String(),
			From:       e.SourceID().String(),
			To:         e.TargetID().String(),
			FromOutput: e.SourcePort(),
			ToInput:    e.TargetPort(),
		})
	}
	return components, connections
}

func nodeFromDTO(c ports.ComponentDTO) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(c.ID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	t, err := catalog.ParseNodeType(c.Type)
	if err != nil {
		return nil, err
	}
	cfg, err := catalog.FromMap(t, c.Properties)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructNode(id, t, c.Name, c.Position, cfg)
}

func edgeFromDTO(c ports.ConnectionDTO) (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(c.ID)
	if err != nil {
		id = valueobjects.NewEdgeID()
	}
	from, err := valueobjects.NewNodeIDFromString(c.From)
	if err != nil {
		return nil, pkgerrors.NewValidationError("connection has no source node")
	}
	to, err := valueobjects.NewNodeIDFromString(c.To)
	if err != nil {
		return nil, pkgerrors.NewValidationError("connection has no target node")
	}
	return entities.NewEdge(id, from, c.FromOutput, to, c.ToInput)
}

func optionalDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
