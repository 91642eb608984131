package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"observatory/internal/api"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// outputFlag is the value of -o.
type outputFlag string

func (o *outputFlag) String() string {
	if o == nil || *o == "" {
		return formatTable
	}
	return string(*o)
}

func (o *outputFlag) Set(v string) error {
	switch v = strings.ToLower(strings.TrimSpace(v)); v {
	case formatTable, formatJSON, formatYAML:
		*o = outputFlag(v)
		return nil
	}
	return fmt.Errorf("unknown output format %q (table, json, yaml)", v)
}

// write renders v as JSON or YAML, or calls rows for a table.
func (o outputFlag) write(w io.Writer, v interface{}, headers []string, rows func() [][]string) error {
	switch o.String() {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	_, err := fmt.Fprintln(w, renderTable(headers, rows()))
	return err
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().PaddingRight(2)
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

var (
	modelHeaders    = []string{"ID", "NAME", "TASK", "STATUS", "ACTIVE"}
	artifactHeaders = []string{"ID", "VERSION", "FILENAME", "SIZE", "ARCHIVE", "ACTIVE"}
)

func modelRows(models []api.Model) func() [][]string {
	return func() [][]string {
		rows := make([][]string, 0, len(models))
		for _, m := range models {
			active := "-"
			if m.HasActiveArtifact() {
				active = m.ActiveArtifact
				if m.ActiveVersion != "" {
					active += " (" + m.ActiveVersion + ")"
				}
			}
			rows = append(rows, []string{m.ID.String(), m.Name, m.Task.Label(), string(m.Status), active})
		}
		return rows
	}
}

// artifactRows marks the artifact matching the model's active file and
// version. active may be nil when the model is unknown.
func artifactRows(arts []api.Artifact, active *api.Model) func() [][]string {
	return func() [][]string {
		rows := make([][]string, 0, len(arts))
		for _, a := range arts {
			archive, mark := "", ""
			if a.IsArchive {
				archive = "yes"
			}
			if active != nil && active.ActiveArtifact == a.Filename &&
				(active.ActiveVersion == "" || active.ActiveVersion == a.Version) {
				mark = "*"
			}
			rows = append(rows, []string{
				a.ID.String(), a.Version, a.Filename, humanize.Bytes(uint64(a.Size)), archive, mark,
			})
		}
		return rows
	}
}
