package main

import (
	"context"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/wormhole-foundation/suigov/commands"
	"github.com/wormhole-foundation/suigov/version"
)

var log = logging.Logger("suigov")

func main() {
	if err := logging.SetLogLevel("*", "info"); err != nil {
		log.Fatal(err)
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			EnvVars:     []string{"GOLOG_LOG_LEVEL"},
			Value:       "info",
			Usage:       "Set the default log level for all loggers to `LEVEL`",
			Destination: &commands.LogFlags.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-level-named",
			EnvVars:     []string{"SUIGOV_LOG_LEVEL_NAMED"},
			Value:       "",
			Usage:       "A comma delimited list of named loggers and log levels formatted as name:level, for example 'logger1:debug,logger2:info'",
			Destination: &commands.LogFlags.LogLevelNamed,
		},
		&cli.BoolFlag{
			Name:        "tracing",
			EnvVars:     []string{"SUIGOV_TRACING"},
			Value:       false,
			Destination: &commands.TracingFlags.Enabled,
		},
		&cli.StringFlag{
			Name:        "jaeger-service-name",
			EnvVars:     []string{"SUIGOV_JAEGER_SERVICE_NAME"},
			Value:       "suigov",
			Destination: &commands.TracingFlags.ServiceName,
		},
		&cli.StringFlag{
			Name:        "jaeger-provider-url",
			EnvVars:     []string{"SUIGOV_JAEGER_PROVIDER_URL"},
			Value:       "http://localhost:14268/api/traces",
			Destination: &commands.TracingFlags.ProviderURL,
		},
		&cli.Float64Flag{
			Name:        "jaeger-sampler-ratio",
			EnvVars:     []string{"SUIGOV_JAEGER_SAMPLER_RATIO"},
			Usage:       "If less than 1 probabilistic metrics will be used.",
			Value:       1,
			Destination: &commands.TracingFlags.JaegerSamplerParam,
		},
		&cli.StringFlag{
			Name:        "prometheus-port",
			EnvVars:     []string{"SUIGOV_PROMETHEUS_PORT"},
			Usage:       "Address to serve /metrics on, for example ':9991'. Disabled when empty.",
			Destination: &commands.MetricFlags.PrometheusPort,
		},
	}

	app := &cli.App{
		Name:     "suigov",
		Usage:    "Governed upgrades of the wormhole package on sui",
		Version:  version.String(),
		Flags:    append(flags, commands.ConfigCLIFlags...),
		HideHelp: true,
		Metadata: commands.Metadata(),
		Commands: []*cli.Command{
			commands.HelpCmd,
			commands.InitCmd,
			commands.BuildCmd,
			commands.SignCmd,
			commands.InspectCmd,
			commands.ResolveCmd,
			commands.UpgradeCmd,
			commands.MigrateCmd,
		},
	}
	cli.AppHelpTemplate = commands.AppHelpTemplate

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
