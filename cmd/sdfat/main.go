// Command sdfat inspects FAT32 images and appends to the files inside of them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	// appFs is the filesystem images are opened from.
	appFs = afero.NewOsFs()

	// Config is the global tool configuration
	Config = GlobalConfig{}
)

// GlobalConfig is read from $HOME/.sdfat/config.yml if it exists.
type GlobalConfig struct {
	// Image is used if --image is not set.
	Image string `yaml:"image"`
	// Verbose is used if --verbose is not set.
	Verbose int `yaml:"verbose"`
}

func defaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".sdfat", "config.yml")
}

// readConfig loads the config at path. A missing file is no error.
func readConfig(path string) error {
	cfgBytes, err := afero.ReadFile(appFs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %q: %v", path, err)
	}
	if err := yaml.Unmarshal(cfgBytes, &Config); err != nil {
		return fmt.Errorf("failed to parse %q: %v", path, err)
	}
	return nil
}

func newCmd() *cobra.Command {
	var (
		flagQuiet       bool
		flagVerbose     int
		flagVerboseName = "verbose"
		flagConfig      string
		flagImage       string
	)
	opts := &imageOptions{}

	cmd := &cobra.Command{
		Use:               "sdfat",
		Short:             "inspect and append to FAT32 images",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Config = GlobalConfig{}
			if err := readConfig(flagConfig); err != nil {
				return err
			}

			opts.path = flagImage
			if opts.path == "" {
				opts.path = Config.Image
			}

			verboseSet := cmd.Flag(flagVerboseName).Changed
			if !verboseSet && Config.Verbose > 0 {
				flagVerbose = Config.Verbose
				verboseSet = true
			}
			return setupLogging(flagQuiet, flagVerbose, verboseSet)
		},
	}

	cmd.AddCommand(infoCmd(opts))
	cmd.AddCommand(lsCmd(opts))
	cmd.AddCommand(catCmd(opts))
	cmd.AddCommand(appendCmd(opts))
	cmd.AddCommand(mkimageCmd())

	cmd.PersistentFlags().StringVar(&flagImage, "image", "", "Path of the FAT32 image to work on")
	cmd.PersistentFlags().BoolVar(&opts.skipChecks, "skip-checks", false, "Mount images even if the boot sector has no jump instruction")
	cmd.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Path of the config file")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet execution")
	cmd.PersistentFlags().CountVarP(&flagVerbose, flagVerboseName, "v", "Verbose execution, can be repeated up to 3 times")

	return cmd
}

func main() {
	if err := newCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
