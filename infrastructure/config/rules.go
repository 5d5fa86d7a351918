package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domainconfig "strategy-editor/domain/config"
)

// RulesFile is the YAML overlay for the editing rules. Absent keys keep
// their defaults.
type RulesFile struct {
	Graph struct {
		MaxNodes    *int    `yaml:"maxNodes"`
		MaxEdges    *int    `yaml:"maxEdges"`
		DefaultName *string `yaml:"defaultName"`
	} `yaml:"graph"`
	Edges struct {
		AllowSelfConnections *bool `yaml:"allowSelfConnections"`
		AllowDuplicates      *bool `yaml:"allowDuplicates"`
	} `yaml:"edges"`
	History struct {
		Limit *int `yaml:"limit"`
	} `yaml:"history"`
	Validation struct {
		DisconnectedMinNodes *int `yaml:"disconnectedMinNodes"`
		ExecutionMinNodes    *int `yaml:"executionMinNodes"`
		RiskMinNodes         *int `yaml:"riskMinNodes"`
	} `yaml:"validation"`
}

// LoadRules reads the rules file at path over the default rules.
// An empty path returns the defaults.
func LoadRules(path string) (*domainconfig.DomainConfig, error) {
	if path == "" {
		return domainconfig.DefaultDomainConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rules document over the default rules
func ParseRules(data []byte) (*domainconfig.DomainConfig, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	rules := file.Apply(domainconfig.DefaultDomainConfig())
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Apply overlays the set keys onto a copy of base
func (f RulesFile) Apply(base *domainconfig.DomainConfig) *domainconfig.DomainConfig {
	out := base.Clone()
	setInt(&out.MaxNodesPerGraph, f.Graph.MaxNodes)
	setInt(&out.MaxEdgesPerGraph, f.Graph.MaxEdges)
	if f.Graph.DefaultName != nil {
		out.DefaultGraphName = *f.Graph.DefaultName
	}
	setBool(&out.AllowSelfConnections, f.Edges.AllowSelfConnections)
	setBool(&out.AllowDuplicateEdges, f.Edges.AllowDuplicates)
	setInt(&out.HistoryLimit, f.History.Limit)
	setInt(&out.DisconnectedMinNodes, f.Validation.DisconnectedMinNodes)
	setInt(&out.ExecutionMinNodes, f.Validation.ExecutionMinNodes)
	setInt(&out.RiskMinNodes, f.Validation.RiskMinNodes)
	return out
}

func validateRules(r *domainconfig.DomainConfig) error {
	if r.MaxNodesPerGraph <= 0 {
		return fmt.Errorf("graph.maxNodes must be positive")
	}
	if r.MaxEdgesPerGraph <= 0 {
		return fmt.Errorf("graph.maxEdges must be positive")
	}
	if r.HistoryLimit < 0 {
		return fmt.Errorf("history.limit cannot be negative")
	}
	if r.DisconnectedMinNodes < 0 || r.ExecutionMinNodes < 0 || r.RiskMinNodes < 0 {
		return fmt.Errorf("validation thresholds cannot be negative")
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
