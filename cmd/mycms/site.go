package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/sitegen"
)

func siteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Static site tooling",
	}
	cmd.AddCommand(siteGenerateCmd())
	return cmd
}

func siteGenerateCmd() *cobra.Command {
	var themePath, outPath string
	cmd := &cobra.Command{
		Use:   "generate [email]",
		Short: "Render a tenant's static site from a theme bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			theme, err := os.Open(themePath)
			if err != nil {
				return fmt.Errorf("open theme: %w", err)
			}
			defer theme.Close()
			info, err := theme.Stat()
			if err != nil {
				return fmt.Errorf("stat theme: %w", err)
			}

			gen, err := sitegen.NewGenerator(sitegen.Params{
				Repository:      e.repo,
				Logger:          e.logg,
				WorkRoot:        e.cfg.SiteGen.WorkRoot,
				OutputRoot:      e.cfg.SiteGen.OutputRoot,
				ArchiveName:     e.cfg.SiteGen.ArchiveName,
				MaxExtractBytes: e.cfg.SiteGen.MaxExtractBytes(),
			})
			if err != nil {
				return err
			}
			archive, err := gen.Generate(ctx, docstore.TenantKey(args[0]), sitegen.ThemeBundle{Reader: theme, Size: info.Size()})
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = archive.Name
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, archive.Data, 0o644); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d pages to %s\n", len(archive.Files), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&themePath, "theme", "", "Path to the theme zip")
	cmd.Flags().StringVar(&outPath, "out", "", "Archive destination (defaults to the configured archive name)")
	_ = cmd.MarkFlagRequired("theme")
	return cmd
}
