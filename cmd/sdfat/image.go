package main

import (
	"errors"
	"fmt"

	"github.com/aligator/sdfat"
	"github.com/aligator/sdfat/blockdev"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// imageOptions is shared by all commands working on an existing image.
type imageOptions struct {
	path string
	// skipChecks mounts volumes without a valid jump instruction.
	skipChecks bool
}

// withVolume mounts the image, calls fn and closes the image afterwards.
func (o *imageOptions) withVolume(fn func(v *sdfat.Volume) error) (err error) {
	if o.path == "" {
		return errors.New("no image given, use --image or set image in the config file")
	}

	dev, err := blockdev.Open(appFs, o.path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dev.Close())
	}()

	mount := sdfat.Mount
	if o.skipChecks {
		mount = sdfat.MountSkipChecks
	}

	v, err := mount(dev)
	if err != nil {
		return fmt.Errorf("mount %s: %w", o.path, err)
	}
	v.SetLogger(log.WithFields(log.Fields{"image": o.path, "volume": v.Label()}))

	return fn(v)
}
