package main

import (
	"fmt"

	"github.com/aligator/sdfat"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func lsCmd(opts *imageOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "list a directory of the volume",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "/"
			if len(args) > 0 {
				dir = args[0]
			}

			return opts.withVolume(func(v *sdfat.Volume) error {
				d, err := sdfat.NewFs(v).Open(dir)
				if err != nil {
					return err
				}
				defer d.Close()

				infos, err := d.Readdir(-1)
				if err != nil {
					return err
				}

				for _, info := range infos {
					size := humanize.IBytes(uint64(info.Size()))
					if info.IsDir() {
						size = "-"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %9s %s %s\n", info.Mode(), size, info.ModTime().Format("2006-01-02 15:04"), info.Name())
				}
				return nil
			})
		},
	}
}
