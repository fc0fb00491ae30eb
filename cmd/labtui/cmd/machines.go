package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hackline/labtui/internal/catalog"
	"github.com/spf13/cobra"
)

var (
	machinesFilter string
	machinesSort   string
)

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List catalog machines (non-interactive)",
	Long: `List machines from the catalog as a table, suitable for piping.

Filters: all, user-not-owned, root-not-owned, not-owned, user-owned, root-owned
Sorts:   difficulty, user-owns, root-owns, name`,
	RunE: runMachines,
}

func runMachines(cmd *cobra.Command, args []string) error {
	keep, err := machineFilter(machinesFilter)
	if err != nil {
		return err
	}
	less, err := machineSort(machinesSort)
	if err != nil {
		return err
	}

	client, err := newCatalogClient()
	if err != nil {
		return err
	}

	machines, err := client.ListMachines(cmd.Context())
	if err != nil {
		return fmt.Errorf("list machines: %w", err)
	}

	filtered := machines[:0]
	for _, m := range machines {
		if keep(m) {
			filtered = append(filtered, m)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return less(filtered[i], filtered[j]) })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOS\tDIFFICULTY\tPOINTS\tUSER\tROOT\tACTIVE\tIP")
	for _, m := range filtered {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			m.Name, m.OS, m.Difficulty, m.Points,
			yesNo(m.UserOwned), yesNo(m.RootOwned), yesNo(m.Active), m.IP)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func machineFilter(name string) (func(catalog.Machine) bool, error) {
	switch strings.ToLower(name) {
	case "", "all":
		return func(catalog.Machine) bool { return true }, nil
	case "user-not-owned":
		return func(m catalog.Machine) bool { return !m.UserOwned }, nil
	case "root-not-owned":
		return func(m catalog.Machine) bool { return !m.RootOwned }, nil
	case "not-owned":
		return func(m catalog.Machine) bool { return !m.UserOwned && !m.RootOwned }, nil
	case "user-owned":
		return func(m catalog.Machine) bool { return m.UserOwned }, nil
	case "root-owned":
		return func(m catalog.Machine) bool { return m.RootOwned }, nil
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}
}

func machineSort(name string) (func(a, b catalog.Machine) bool, error) {
	byName := func(a, b catalog.Machine) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	}
	switch strings.ToLower(name) {
	case "", "difficulty":
		return func(a, b catalog.Machine) bool {
			if a.Difficulty != b.Difficulty {
				return a.Difficulty < b.Difficulty
			}
			return byName(a, b)
		}, nil
	case "user-owns":
		return func(a, b catalog.Machine) bool {
			if a.UserOwnsCount != b.UserOwnsCount {
				return a.UserOwnsCount > b.UserOwnsCount
			}
			return byName(a, b)
		}, nil
	case "root-owns":
		return func(a, b catalog.Machine) bool {
			if a.RootOwnsCount != b.RootOwnsCount {
				return a.RootOwnsCount > b.RootOwnsCount
			}
			return byName(a, b)
		}, nil
	case "name":
		return byName, nil
	default:
		return nil, fmt.Errorf("unknown sort %q", name)
	}
}

func init() {
	machinesCmd.Flags().StringVar(&machinesFilter, "filter", "all", "filter to apply")
	machinesCmd.Flags().StringVar(&machinesSort, "sort", "difficulty", "sort order")
	rootCmd.AddCommand(machinesCmd)
}
