// Package main runs the simulated arm headlessly for a while, logging joint
// angles and grip state the way a dashboard overlay would read them.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/edaniels/golog"
	goutils "go.viam.com/utils"

	"github.com/mechsim/armsim/motion"
	"github.com/mechsim/armsim/render"
	"github.com/mechsim/armsim/rig"
)

func main() {
	goutils.ContextualMain(mainWithArgs, golog.NewDevelopmentLogger("armsim"))
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	flags := flag.NewFlagSet("armsim", flag.ContinueOnError)
	duration := flags.Duration("duration", 12*time.Second, "how long to run the simulation")
	fps := flags.Float64("fps", 30, "frames per second to step the rig at")
	logEvery := flags.Duration("log-every", time.Second, "how often to log a state snapshot")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	arm := rig.New()
	bridge := render.NewBridge(arm, motion.NewCycle(motion.DefaultCycleConfig()), logger)
	bridge.StartLoop(*fps)
	defer bridge.Close()

	logger.Infow("arm running", "model", arm.Model().Name, "fps", *fps)

	ticker := time.NewTicker(*logEvery)
	defer ticker.Stop()
	done := time.After(*duration)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-ticker.C:
			snap := bridge.Snapshot()
			logger.Infow("arm state",
				"time", snap.Time,
				"phase", snap.Phase,
				"gripping", snap.Gripping,
				"finger_separation", snap.FingerSeparation,
				"joints", snap.JointAngles,
			)
		}
	}
}
