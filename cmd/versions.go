package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Inspect a tool's version history",
	Long:  "Commands for listing, viewing, and exporting versioned tool snapshots.",
}

// -- versions list --

var versionsListCmd = &cobra.Command{
	Use:   "list <tool>",
	Short: "List all versions of a tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		versions, err := st.ListVersions(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "versions list")
		}

		if len(versions) == 0 {
			fmt.Fprintln(os.Stderr, "No versions found.")
			return nil
		}

		formatVersionsList(os.Stdout, versions)
		return nil
	},
}

// -- versions show --

var versionsShowCmd = &cobra.Command{
	Use:   "show <tool> <number>",
	Short: "Show one version snapshot in full",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		number, err := strconv.Atoi(args[1])
		if err != nil {
			return eris.Wrapf(err, "invalid version number %q", args[1])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		version, err := st.GetVersion(ctx, args[0], number)
		if err != nil {
			return eris.Wrap(err, "versions show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(version)
	},
}

// -- versions export --

var (
	exportFormat string
	exportOut    string
)

var versionsExportCmd = &cobra.Command{
	Use:   "export <tool>",
	Short: "Export a tool's version history to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tool := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		versions, err := st.ListVersions(ctx, tool)
		if err != nil {
			return eris.Wrap(err, "versions export")
		}
		if len(versions) == 0 {
			return eris.Errorf("no versions found for %s", tool)
		}

		out := exportOut
		if out == "" {
			out = tool + "-versions." + exportFormat
		}

		switch exportFormat {
		case "xlsx":
			err = exportXLSX(tool, versions, out)
		case "json":
			err = exportMarshal(versions, out, func(v any) ([]byte, error) {
				return json.MarshalIndent(v, "", "  ")
			})
		case "yaml":
			err = exportMarshal(versions, out, yaml.Marshal)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Exported %d versions to %s\n", len(versions), out)
		return nil
	},
}

func init() {
	versionsExportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "export format (xlsx, json, yaml)")
	versionsExportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default <tool>-versions.<format>)")

	versionsCmd.AddCommand(versionsListCmd)
	versionsCmd.AddCommand(versionsShowCmd)
	versionsCmd.AddCommand(versionsExportCmd)
	rootCmd.AddCommand(versionsCmd)
}

// formatVersionsList writes a tabular version history to w.
func formatVersionsList(out io.Writer, versions []model.VersionRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tTOOL_VERSION\tCHANGES\tCREATED")
	_, _ = fmt.Fprintln(w, "-------\t------------\t-------\t-------")

	for _, v := range versions {
		toolVersion := ""
		if v.Document.Version != nil {
			toolVersion = v.Document.Version.Current
		}
		_, _ = fmt.Fprintf(w, "v%d\t%s\t%d\t%s\n",
			v.VersionNumber,
			toolVersion,
			len(v.TriggeringChanges),
			v.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// exportXLSX writes a two-sheet workbook: a version summary and a flat list
// of every triggering change.
func exportXLSX(tool string, versions []model.VersionRecord, path string) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Versions")
	if err != nil {
		return eris.Wrap(err, "export: add versions sheet")
	}
	header := summary.AddRow()
	for _, h := range []string{"Version", "Tool Version", "Pricing Model", "Features", "Integrations", "Triggering Changes", "Created"} {
		header.AddCell().Value = h
	}
	for _, v := range versions {
		row := summary.AddRow()
		row.AddCell().SetInt(v.VersionNumber)
		if v.Document.Version != nil {
			row.AddCell().Value = v.Document.Version.Current
		} else {
			row.AddCell()
		}
		if v.Document.Pricing != nil {
			row.AddCell().Value = v.Document.Pricing.Model
		} else {
			row.AddCell()
		}
		row.AddCell().SetInt(len(v.Document.Features))
		row.AddCell().SetInt(len(v.Document.Integrations))
		row.AddCell().SetInt(len(v.TriggeringChanges))
		row.AddCell().Value = v.CreatedAt.Format("2006-01-02 15:04")
	}

	changes, err := f.AddSheet("Changes")
	if err != nil {
		return eris.Wrap(err, "export: add changes sheet")
	}
	header = changes.AddRow()
	for _, h := range []string{"Version", "Type", "Field", "Old", "New", "Confidence", "Impact"} {
		header.AddCell().Value = h
	}
	for _, v := range versions {
		for _, c := range v.TriggeringChanges {
			row := changes.AddRow()
			row.AddCell().SetInt(v.VersionNumber)
			row.AddCell().Value = string(c.Type)
			row.AddCell().Value = c.FieldName
			row.AddCell().Value = fmt.Sprint(c.OldValue)
			row.AddCell().Value = fmt.Sprint(c.NewValue)
			row.AddCell().SetFloat(c.Confidence)
			row.AddCell().SetFloat(c.ImpactScore)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func exportMarshal(versions []model.VersionRecord, path string, marshal func(any) ([]byte, error)) error {
	data, err := marshal(versions)
	if err != nil {
		return eris.Wrap(err, "export: marshal versions")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
