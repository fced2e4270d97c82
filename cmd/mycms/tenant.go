package main

import (
	"github.com/spf13/cobra"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/internal/tenants"
)

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Inspect and bootstrap tenant documents",
	}
	cmd.AddCommand(tenantShowCmd())
	cmd.AddCommand(tenantLoginCmd())
	return cmd
}

func tenantShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show [email]",
		Short: "Print a tenant document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			doc, err := e.repo.Load(ctx, docstore.TenantKey(args[0]))
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), doc, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatJSON, "Output format (json, yaml)")
	return cmd
}

func tenantLoginCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Create the tenant document if it does not exist yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			svc, err := tenants.NewService(e.repo, e.logg, tenants.WithLocker(e.backend.Locker))
			if err != nil {
				return err
			}
			doc, err := svc.CreateOrLogin(ctx, args[0])
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), doc, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatJSON, "Output format (json, yaml)")
	return cmd
}
