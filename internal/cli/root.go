package cli

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"apiprobe/internal/config"
	"apiprobe/internal/debuglog"
	"apiprobe/internal/httpclient"
	"apiprobe/internal/ui"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "apiprobe [document]",
		Short: "Browse and try the operations of a Swagger/OpenAPI document",
		Long: heredoc.Doc(`
			apiprobe opens a terminal explorer for a Swagger 2.0 or OpenAPI 3 document.
			Pick an operation, fill in its parameters, send the request and inspect the
			response. The document itself can be edited and re-applied in place.
		`),
		Version:       config.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runExplorer,
	}

	config.BindFlags(root)
	root.AddCommand(OpsCommand(), CallCommand())

	return root
}

func runExplorer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd, firstArg(args))
	if err != nil {
		return err
	}

	logger, closer := debuglog.Open(cfg.Debug || debuglog.Enabled(), debuglog.Path())
	defer closer.Close()
	logger.Printf("apiprobe %s: %s", config.Version, cfg.Spec)

	app := ui.NewApp(ui.Options{
		Source:         cfg.Spec,
		BaseURL:        cfg.BaseURL,
		Transport:      httpclient.NewClient(cfg.Timeout),
		AcceptEncoding: cfg.AcceptEncoding,
		AcceptLanguage: cfg.AcceptLanguage,
		UserAgent:      cfg.UserAgent,
		BodyFormat:     cfg.Format(),
		TabSize:        cfg.TabSize,
		Logger:         logger,
	})
	if err := app.Init(cmd.Context()); err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	return app.Run()
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
