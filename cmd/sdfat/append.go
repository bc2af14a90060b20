package main

import (
	"errors"
	"os"
	"strings"

	"github.com/aligator/sdfat"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func appendCmd(opts *imageOptions) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "append <path> [text...]",
		Short: "append to an existing file of the volume",
		Long: `Append to an existing file of the volume.
The text arguments are joined by spaces and terminated by a newline.
With --from the content of a local file is appended instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			switch {
			case from != "" && len(args) > 1:
				return errors.New("either use --from or text arguments")
			case from != "":
				var err error
				if data, err = afero.ReadFile(appFs, from); err != nil {
					return err
				}
			case len(args) > 1:
				data = []byte(strings.Join(args[1:], " ") + "\n")
			default:
				return errors.New("nothing to append")
			}

			return opts.withVolume(func(v *sdfat.Volume) error {
				f, err := sdfat.NewFs(v).OpenFile(args[0], os.O_WRONLY|os.O_APPEND, 0)
				if err != nil {
					return err
				}
				defer f.Close()

				n, err := f.Write(data)
				if err != nil {
					return err
				}
				log.Infof("Appended %d bytes to %s", n, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Local file whose content is appended")
	return cmd
}
