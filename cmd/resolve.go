package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/datagrid/app"
	"github.com/kilianp07/datagrid/core/grid"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Print the merged configuration of a grid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(_ context.Context, svc *app.Service) error {
			return runResolve(cmd, svc, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

type resolveOutput struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"grid_type"`
	Variant string         `yaml:"variant"`
	Manager string         `yaml:"manager"`
	Applied []string       `yaml:"applied,omitempty"`
	Skipped []string       `yaml:"skipped,omitempty"`
	Config  map[string]any `yaml:"config"`
}

func runResolve(cmd *cobra.Command, svc *app.Service, name string) error {
	if !svc.Grids.CanCreate(name) {
		return fmt.Errorf("%q is not a grid name: missing prefix %q", name, svc.Grids.Resolver().Prefix())
	}
	res, err := svc.Grids.Resolver().Resolve(name, svc.Config.Raw, svc.Container)
	if err != nil {
		return err
	}
	v := grid.VariantFor(res.GridType)
	out := resolveOutput{
		Name:    name,
		Type:    res.GridType,
		Variant: v.String(),
		Manager: v.ManagerService(svc.Config.Grid.Store),
		Applied: res.Applied,
		Skipped: res.Skipped,
		Config:  res.Config,
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
