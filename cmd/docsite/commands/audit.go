package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docsite/internal/audit"
	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// AuditCmd implements the 'audit' command. It inspects an existing output
// tree without building.
type AuditCmd struct {
	Strict bool `help:"Exit non-zero when relative links are found"`
}

func (a *AuditCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	report, err := audit.New(logger(g)).Run(ctx, cfg.PagesPath())
	if err != nil {
		return err
	}
	for _, f := range report.Findings {
		fmt.Println(f.String())
	}
	fmt.Printf("%d pages audited, %d relative links\n", report.Files, len(report.Findings))

	if a.Strict && len(report.Findings) > 0 {
		return errors.NewError(errors.CategoryLink, "relative links left in output").
			WithContext("findings", len(report.Findings)).Build()
	}
	return nil
}
