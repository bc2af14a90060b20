package main

import (
	"fmt"
	"os"

	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func mkimageCmd() *cobra.Command {
	var (
		size  string
		label string
		files []string
	)

	cmd := &cobra.Command{
		Use:   "mkimage <path>",
		Short: "create a new FAT32 image",
		Long: `Create a new, empty FAT32 image with 512 byte sectors.
Files can only be appended to, so --file creates empty files which can be filled using "sdfat append".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := humanize.ParseBytes(size)
			if err != nil {
				return fmt.Errorf("invalid size %q: %v", size, err)
			}
			return mkimage(args[0], int64(n), label, files)
		},
	}

	cmd.Flags().StringVar(&size, "size", "32MiB", "Size of the image")
	cmd.Flags().StringVar(&label, "label", "SDFAT", "Volume label")
	cmd.Flags().StringArrayVar(&files, "file", nil, "Absolute 8.3 path of an empty file to create, can be provided multiple times")
	return cmd
}

func mkimage(path string, size int64, label string, files []string) (err error) {
	f, err := appFs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err := f.Truncate(size); err != nil {
		return err
	}

	fs, err := fat32.Create(f, size, 0, 512, label)
	if err != nil {
		return fmt.Errorf("format %s: %v", path, err)
	}

	for _, name := range files {
		if _, err := fs.OpenFile(name, os.O_CREATE|os.O_RDWR); err != nil {
			return fmt.Errorf("create %s: %v", name, err)
		}
		log.Debugf("created %s", name)
	}

	log.Infof("Created %s with %s", path, humanize.IBytes(uint64(size)))
	return nil
}
