// Package main serves the mecanum drive base and its state sensor as a
// viam module.
package main

import (
	"context"

	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/module"
	goutils "go.viam.com/utils"

	"github.com/HopeCollector/mecanum-drive-controller/mecanumbase"
)

func main() {
	goutils.ContextualMain(mainWithArgs, logging.NewDebugLogger("mecanumDriveModule"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	driveModule, err := module.NewModuleFromArgs(ctx, logger)
	if err != nil {
		return err
	}
	if err := driveModule.AddModelFromRegistry(ctx, base.API, mecanumbase.Model); err != nil {
		return err
	}
	if err := driveModule.AddModelFromRegistry(ctx, sensor.API, mecanumbase.SensorModel); err != nil {
		return err
	}

	err = driveModule.Start(ctx)
	defer driveModule.Close(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
