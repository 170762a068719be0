package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/priority"
)

var exportTrackerCmd = &cobra.Command{
	Use:   "export-tracker <tracker-file>",
	Short: "Export a tracker's keys and grid in another format",
	Long: `Render a tracker file's key definitions and dependency grid as
Markdown (the tracker's own format, re-serialized), a Graphviz dot adjacency
list, JSON, or CSV.

--format dot/csv/json are plain serializations of the in-memory grid; no
Mermaid rendering is produced here -- pipe the dot output into Graphviz or
an external Mermaid converter instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runExportTracker,
}

func init() {
	exportTrackerCmd.Flags().String("format", "md", "output format: md, dot, json, or csv")
	exportTrackerCmd.Flags().StringP("output", "o", "", "path to write the export (default: stdout)")
	rootCmd.AddCommand(exportTrackerCmd)
}

func runExportTracker(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	lt, err := loadTrackerFile(path)
	if err != nil {
		return fmt.Errorf("loading tracker: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outputPath, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "md":
		return exportMarkdown(w, lt)
	case "dot":
		return exportDot(w, lt)
	case "json":
		return exportJSON(w, lt)
	case "csv":
		return exportCSV(w, lt)
	default:
		return fmt.Errorf("unknown format %q: want md, dot, json, or csv", format)
	}
}

func exportMarkdown(w io.Writer, lt *loadedTracker) error {
	fmt.Fprintln(w, "Key Definitions:")
	for _, k := range lt.order {
		fmt.Fprintf(w, "%s: %s\n", k, lt.file.Defs[k])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "X "+strings.Join(lt.order, " "))
	for _, k := range lt.order {
		fmt.Fprintf(w, "%s = %s\n", k, lt.rows[k])
	}
	return nil
}

// exportDot writes a Graphviz digraph of every non-placeholder,
// non-diagonal relation. Mutual relations are emitted as a single
// undirected-looking pair of arrows with dir=none; directional relations
// as a single arrow.
func exportDot(w io.Writer, lt *loadedTracker) error {
	fmt.Fprintln(w, "digraph tracker {")
	for _, k := range lt.order {
		fmt.Fprintf(w, "  %q;\n", k)
	}
	for _, row := range lt.order {
		for j, col := range lt.order {
			if row == col {
				continue
			}
			c := priority.Char(lt.rows[row][j])
			switch c {
			case priority.Placeholder, priority.Self, priority.Empty:
				continue
			case priority.Mutual:
				fmt.Fprintf(w, "  %q -> %q [dir=none, label=%q];\n", row, col, charName(c))
			default:
				fmt.Fprintf(w, "  %q -> %q [label=%q];\n", row, col, charName(c))
			}
		}
	}
	fmt.Fprintln(w, "}")
	return nil
}

type exportedCell struct {
	Row  string `json:"row"`
	Col  string `json:"col"`
	Char string `json:"char"`
	Name string `json:"name"`
}

type exportedTracker struct {
	Keys  []string          `json:"keys"`
	Defs  map[string]string `json:"defs"`
	Cells []exportedCell    `json:"cells"`
}

func exportJSON(w io.Writer, lt *loadedTracker) error {
	out := exportedTracker{Keys: lt.order, Defs: lt.file.Defs}
	for _, row := range lt.order {
		for j, col := range lt.order {
			if row == col {
				continue
			}
			c := priority.Char(lt.rows[row][j])
			if c == priority.Placeholder || c == priority.Self || c == priority.Empty {
				continue
			}
			out.Cells = append(out.Cells, exportedCell{Row: row, Col: col, Char: string(rune(c)), Name: charName(c)})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func exportCSV(w io.Writer, lt *loadedTracker) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, lt.order...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range lt.order {
		record := make([]string, 0, len(lt.order)+1)
		record = append(record, row)
		for _, c := range lt.rows[row] {
			record = append(record, string(c))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
