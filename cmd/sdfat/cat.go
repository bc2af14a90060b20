package main

import (
	"io"

	"github.com/aligator/sdfat"
	"github.com/spf13/cobra"
)

func catCmd(opts *imageOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>...",
		Short: "print files of the volume",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *sdfat.Volume) error {
				fs := sdfat.NewFs(v)
				for _, p := range args {
					f, err := fs.Open(p)
					if err != nil {
						return err
					}

					_, err = io.Copy(cmd.OutOrStdout(), f)
					f.Close()
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
