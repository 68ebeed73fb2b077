package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/datagrid/app"
	"github.com/kilianp07/datagrid/core/model"
	"github.com/kilianp07/datagrid/core/persistence"
)

var (
	saveID   int64
	saveSets []string
)

var findCmd = &cobra.Command{
	Use:   "find <grid> <class> <id>",
	Short: "Print one entity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[2])
		if err != nil {
			return err
		}
		return withEntityModel(cmd, args[0], args[1], func(ctx context.Context, m *model.Model) error {
			e, ok, err := m.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s %d not found", args[1], id)
			}
			return printEntity(cmd, m, e)
		})
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <grid> <class>",
	Short: "Insert or update an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseSets(saveSets)
		if err != nil {
			return err
		}
		return withEntityModel(cmd, args[0], args[1], func(ctx context.Context, m *model.Model) error {
			e := m.ClassMetadata().NewEntity()
			if saveID != 0 {
				found, ok, err := m.FindByID(ctx, saveID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s %d not found", args[1], saveID)
				}
				e = found
			}
			r, ok := e.(*persistence.Record)
			if !ok {
				return fmt.Errorf("class %s is not editable from the command line", args[1])
			}
			for k, v := range values {
				r.Set(k, v)
			}
			saved, err := m.Save(ctx, r)
			if err != nil {
				return err
			}
			return printEntity(cmd, m, saved)
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <grid> <class> <id>",
	Short: "Delete an entity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[2])
		if err != nil {
			return err
		}
		return withEntityModel(cmd, args[0], args[1], func(ctx context.Context, m *model.Model) error {
			removed, err := m.RemoveByID(ctx, id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed: %t\n", removed)
			return err
		})
	},
}

func init() {
	saveCmd.Flags().Int64Var(&saveID, "id", 0, "identity of the entity to update")
	saveCmd.Flags().StringArrayVar(&saveSets, "set", nil, "field assignment as key=value, repeatable")
	rootCmd.AddCommand(findCmd, saveCmd, removeCmd)
}

func withEntityModel(cmd *cobra.Command, gridName, class string, fn func(context.Context, *model.Model) error) error {
	return withService(cmd, func(ctx context.Context, svc *app.Service) error {
		m, err := svc.Model(gridName, class)
		if err != nil {
			return err
		}
		return fn(ctx, m)
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// parseSets reads key=value pairs. Values are YAML scalars, so "true" is a
// bool and "42" an integer; quote them to keep strings.
func parseSets(sets []string) (map[string]any, error) {
	out := make(map[string]any, len(sets))
	for _, s := range sets {
		k, raw, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", s)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("value of %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func printEntity(cmd *cobra.Command, m *model.Model, e persistence.Entity) error {
	fields, err := persistence.FieldsOf(m.ClassMetadata(), e)
	if err != nil {
		return err
	}
	fields[m.ClassMetadata().Identifier] = e.EntityID()
	data, err := yaml.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
