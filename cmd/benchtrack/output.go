package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"benchtrack/internal/regression"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	regressedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	improvedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stableStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

func outcomeStyle(o regression.Outcome) lipgloss.Style {
	switch o {
	case regression.Regressed:
		return regressedStyle
	case regression.Improved:
		return improvedStyle
	case regression.Stable:
		return stableStyle
	default:
		return pendingStyle
	}
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls table for the human format.
func render(w io.Writer, format string, v any, table func(tw *tabwriter.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		data, err := toYAML(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

// toYAML converts through the JSON encoding so YAML output uses the same field
// names and epoch-ms dates as the API.
func toYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

// blockStyle drops the flow style JSON input parses into.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
