package main

import (
	"fmt"

	"github.com/aligator/sdfat"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func infoCmd(opts *imageOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "show the geometry of the volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVolume(func(v *sdfat.Volume) error {
				free, err := v.FreeClusters()
				if err != nil {
					return err
				}

				bs := v.BootSector()
				clusterSize := uint64(bs.ClusterSize())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "label:               %s\n", v.Label())
				fmt.Fprintf(out, "bytes per sector:    %d\n", bs.BytesPerSector)
				fmt.Fprintf(out, "sectors per cluster: %d\n", bs.SectorsPerCluster)
				fmt.Fprintf(out, "cluster size:        %s\n", humanize.IBytes(clusterSize))
				fmt.Fprintf(out, "FATs:                %d x %d sectors\n", bs.NumFATs, bs.FATSize)
				fmt.Fprintf(out, "root cluster:        %d\n", bs.RootCluster)
				fmt.Fprintf(out, "clusters:            %s\n", humanize.Comma(int64(v.ClusterCount())))
				fmt.Fprintf(out, "capacity:            %s\n", humanize.IBytes(uint64(v.ClusterCount())*clusterSize))
				fmt.Fprintf(out, "free:                %s\n", humanize.IBytes(uint64(free)*clusterSize))
				return nil
			})
		},
	}
}
