package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/jsbuild/internal/build"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the packages that would be built",
	Long: `List every package of the project with its source and output directories,
without compiling anything. Packages that cannot be built are listed with the
reason. Paths are relative to the project root.

Examples:
  jsbuild list                    # List packages in table format
  jsbuild list -f json            # Output as JSON
  jsbuild list -f yaml            # Output as YAML`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listFlags *OutputFlags

func init() {
	rootCmd.AddCommand(listCmd)
	listFlags = AddOutputFlags(listCmd, OutputTable, OutputJSON, OutputYAML)
}

// packageEntry is one line of the list output.
type packageEntry struct {
	Name     string `json:"name" yaml:"name"`
	Root     string `json:"root" yaml:"root"`
	Tsconfig string `json:"tsconfig,omitempty" yaml:"tsconfig,omitempty"`
	Src      string `json:"src,omitempty" yaml:"src,omitempty"`
	Out      string `json:"out,omitempty" yaml:"out,omitempty"`
	Target   string `json:"target,omitempty" yaml:"target,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	planned, err := build.Plan(p.store, p.ws)
	if err != nil {
		return &ExitError{Code: ExitErrors, Err: fmt.Errorf("%s: %w", p.ws.MembershipPath(), err)}
	}

	entries := make([]packageEntry, 0, len(planned))
	for _, pp := range planned {
		entries = append(entries, newPackageEntry(p.ws.Root, pp))
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(listFlags.Format) {
	case OutputJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case OutputYAML:
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(entries)
	default:
		return outputPackageTable(out, entries)
	}
}

func newPackageEntry(root string, pp build.PlannedPackage) packageEntry {
	var e packageEntry
	if pp.Package == nil {
		e.Name = "-"
		e.Root = relTo(root, filepath.Dir(pp.Path))
		e.Error = pp.Err.Error()
		return e
	}

	e.Name = pp.Package.Name()
	e.Root = relTo(root, pp.Package.RootDir)
	if pp.Package.TsconfigPath != "" {
		e.Tsconfig = relTo(root, pp.Package.TsconfigPath)
	}
	if pp.Err != nil {
		e.Error = pp.Err.Error()
		return e
	}
	e.Src = relTo(root, pp.Options.SrcDir)
	e.Out = relTo(root, pp.Options.OutDir)
	e.Target = pp.Options.Features.Target.String()
	return e
}

func outputPackageTable(out io.Writer, entries []packageEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No packages found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROOT\tSRC\tOUT\tTARGET")
	for _, e := range entries {
		if e.Error != "" {
			fmt.Fprintf(w, "%s\t%s\terror: %s\t\t\n", e.Name, e.Root, e.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Root, e.Src, e.Out, e.Target)
	}
	return w.Flush()
}

// relTo returns path relative to root with forward slashes, or path
// unchanged when it is not below root.
func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}
