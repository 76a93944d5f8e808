// Package cli contains the avatar command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vrmkit/avatar/logging"
)

const (
	flagDebug    = "debug"
	flagLogFile  = "log-file"
	flagLogLevel = "log-level"
	flagRig      = "rig"
	flagClip     = "clip"
	flagTime     = "time"
	flagFrames   = "frames"
	flagRate     = "rate"
	flagRealtime = "realtime"
	flagLookAt   = "look-at"
	flagKind     = "kind"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "avatar",
		Usage:           "retarget humanoid clips and simulate spring bones",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: "info",
				Usage: "minimum log level: debug, info, warn or error",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also append logs to `FILE`, rotated at 10MB",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print the humanoid bones and spring chains of a rig",
				UsageText: "avatar inspect --rig <rig.json>",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: flagRig, Required: true, Usage: "rig description `FILE`"},
				},
				Action: InspectAction,
			},
			{
				Name:      "retarget",
				Usage:     "apply a clip authored on another skeleton to a rig",
				UsageText: "avatar retarget --rig <rig.json> --clip <clip.json> [--time <seconds>]",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: flagRig, Required: true, Usage: "rig description `FILE`"},
					&cli.PathFlag{Name: flagClip, Required: true, Usage: "clip description `FILE`"},
					&cli.Float64Flag{Name: flagTime, Value: 0, Usage: "clip time in seconds to sample"},
				},
				Action: RetargetAction,
			},
			{
				Name:      "simulate",
				Usage:     "run spring bones on a rig, optionally driven by a retargeted clip",
				UsageText: "avatar simulate --rig <rig.json> [--clip <clip.json>] [--frames N] [--rate HZ]",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: flagRig, Required: true, Usage: "rig description `FILE`"},
					&cli.PathFlag{Name: flagClip, Usage: "clip description `FILE`"},
					&cli.IntFlag{Name: flagFrames, Value: 60, Usage: "number of ticks to run"},
					&cli.Float64Flag{Name: flagRate, Value: 60, Usage: "ticks per second"},
					&cli.BoolFlag{Name: flagRealtime, Usage: "tick on the wall clock instead of as fast as possible"},
					&cli.StringFlag{Name: flagLookAt, Usage: "world position `X,Y,Z` for the eyes to look at"},
				},
				Action: SimulateAction,
			},
			{
				Name:      "schema",
				Usage:     "print the JSON schema of a config kind",
				UsageText: "avatar schema --kind rig|clip",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagKind, Value: "rig", Usage: "config kind: rig or clip"},
				},
				Action: SchemaAction,
			},
		},
	}
}

func newLogger(c *cli.Context) (logging.Logger, error) {
	logger := logging.NewBlankLogger("avatar")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if path := c.Path(flagLogFile); path != "" {
		logger.AddAppender(logging.NewWriterAppender(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 2,
		}))
	}
	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil {
		return nil, err
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger.SetLevel(level)
	return logger, nil
}
