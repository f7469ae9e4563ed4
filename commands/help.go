package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var HelpCmd = &cli.Command{
	Name:      "help",
	Aliases:   []string{"h"},
	Usage:     "Shows a list of commands or help for one command",
	ArgsUsage: "[command]",
	Action: func(c *cli.Context) error {
		args := c.Args()
		if args.Present() {
			return ShowCommandHelp(c, args.First())
		}

		_ = cli.ShowAppHelp(c)
		return nil
	},
}

func ShowCommandHelp(ctx *cli.Context, command string) error {
	if command == "" {
		cli.HelpPrinter(ctx.App.Writer, cli.SubcommandHelpTemplate, ctx.App)
		return nil
	}

	for _, c := range ctx.App.Commands {
		if c.HasName(command) {
			templ := c.CustomHelpTemplate
			if templ == "" {
				templ = cli.CommandHelpTemplate
			}

			cli.HelpPrinter(ctx.App.Writer, templ, c)

			return nil
		}
	}

	for _, t := range helpTopics {
		if t.Name == command {
			fmt.Fprintln(ctx.App.Writer, t.Text)
			return nil
		}
	}

	if ctx.App.CommandNotFound == nil {
		return cli.Exit(fmt.Sprintf("No help topic for '%v'", command), 3)
	}

	ctx.App.CommandNotFound(ctx, command)
	return nil
}

func Metadata() map[string]interface{} {
	return map[string]interface{}{
		"Topics": helpTopics,
	}
}

var AppHelpTemplate = `{{.Name}}{{if .Usage}} - {{.Usage}}{{end}}

Usage:

  {{.HelpName}} [global options] <command> [arguments...]

The commands are:
{{range .VisibleCategories}}{{if .Name}}
   {{.Name}}:{{range .VisibleCommands}}
     {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
   {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about a command.

Additional help topics:
{{range .Metadata.Topics}}
  {{.Name}}{{"\t"}}{{.Description}}{{end}}

Use "{{.HelpName}} help <topic>" for more information about that topic.
`

type helpTopic struct {
	Name        string
	Description string
	Text        string
}

// ----------------------------------------------------------------------------
//                                                            80 characters -->
var helpTopics = []helpTopic{
	{
		Name:        "overview",
		Description: "Overview of suigov",
		Text: `Suigov upgrades the wormhole core package on sui under a governance VAA.

A governance VAA is a message from the governance emitter, signed by the
guardians, that authorizes the package whose digest it carries. The digest is
computed from the compiled modules and their dependencies, so a VAA authorizes
exactly one build of the package. 'suigov build' prints the digest of a build
and 'suigov sign' produces a VAA for it with local guardian keys, which is
only useful on test networks where those keys are known.

'suigov upgrade' runs a whole upgrade. It builds the package and checks the
VAA authorizes it before anything is submitted. It then resolves the package
currently referenced by the wormhole state object and submits one transaction
that verifies the VAA, authorizes the upgrade, publishes the new modules and
commits the upgrade. Once that transaction is finalized the package is
resolved again and its migrate function is called with the same VAA.

Each step of a run is recorded in a journal, see 'suigov help journal'.
`,
	},

	{
		Name:        "journal",
		Description: "Recording and resuming runs",
		Text: `Every transition of a run (a transaction submitted, finalized or failed) is
appended to the journal. A run is identified by the first 8 bytes of the
signing digest of its VAA.

When a run stops after the upgrade was finalized but before the migration
was, the package is upgraded and its state is not migrated. 'suigov migrate'
reads the last record for the state object and, when it is such a run,
finishes it with the recorded VAA.

The journal kind is set by Journal.Kind in the config:

  csv       Records are appended to upgrade_journal.csv in Journal.Path.
  postgres  Records are inserted into the upgrade_journal table. The database
            URL is read from the variable named by Journal.URLEnv, or
            Journal.URL when that variable is unset.
  none      Nothing is recorded, runs cannot be resumed.
`,
	},

	{
		Name:        "environment",
		Description: "Environment variables",
		Text: `Keys are only ever read from the environment:

  TESTNET_GUARDIAN_PRIVATE_KEY  Comma separated hex secp256k1 guardian keys
                                used by sign and upgrade when no --vaa is
                                given. Keys are assigned guardian indices from
                                Governance.GuardianIndices, or 0..n-1.

  TESTNET_WALLET_PRIVATE_KEY    Base64 sui keystore entry of the account that
                                sends and pays for transactions.

Other variables:

  SUIGOV_CONFIG    Path of the config file.
  SUIGOV_RPC       Overrides Network.RPCURL.
  SUIGOV_STATE     Overrides Network.StateID.
  SUIGOV_JOURNAL   Overrides Journal.Kind.
  SUIGOV_DB        Database URL of the postgres journal.
  GOLOG_LOG_LEVEL  Default log level.
`,
	},
}
