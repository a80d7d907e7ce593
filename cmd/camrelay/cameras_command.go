package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCamerasCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cameras",
		Short: "List the cameras selected for capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, cams, err := ctx.cameras()
			if err != nil {
				return err
			}
			if all {
				cams, err = reg.Resolve(reg.IDs())
				if err != nil {
					return err
				}
			}

			rows := make([][]string, 0, len(cams))
			for _, cam := range cams {
				regions := make([]string, 0, len(cam.Regions))
				for _, name := range cam.RegionNames() {
					r := cam.Regions[name]
					regions = append(regions, fmt.Sprintf("%s=%s [%d,%d %d,%d]", name, cam.Alias(name), r.X1, r.Y1, r.X2, r.Y2))
				}
				rows = append(rows, []string{
					cam.ID,
					cam.Trigger.Kind,
					cam.Trigger.Selector,
					strings.Join(regions, "; "),
					cam.Link,
				})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ID", "TRIGGER", "SELECTOR", "REGIONS", "LINK"}, rows, nil)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every camera in the registry, not just the selected ones")
	return cmd
}
