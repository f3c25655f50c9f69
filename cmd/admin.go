package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/repository"
)

var (
	tenantName      string
	gatewayTenantID string
	gatewayName     string
	gatewayParams   map[string]string
	gatewayPriority int32
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
}

var tenantsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a tenant and print its API key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := mustCreateApplication()
		defer app.cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		item, err := app.adminService.CreateTenant(ctx, tenantName)
		if err != nil {
			return err
		}
		logrus.WithField("tenant_id", item.ID).Info("tenant_created")

		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
			"id":      item.ID,
			"name":    item.Name,
			"api_key": item.APIKey,
		})
	},
}

var gatewaysCmd = &cobra.Command{
	Use:   "gateways",
	Short: "Manage tenant gateway configurations",
}

var gatewaysConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store encrypted credentials for a tenant gateway",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := mustCreateApplication()
		defer app.cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg, err := app.adminService.ConfigureGateway(ctx, gatewayTenantID, gatewayName, gatewayParams, gatewayPriority)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"tenant_id": cfg.TenantID,
			"gateway":   cfg.GatewayName,
		}).Info("gateway_configured")

		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
			"id":        cfg.ID,
			"tenant_id": cfg.TenantID,
			"gateway":   cfg.GatewayName,
			"priority":  cfg.Priority,
			"active":    cfg.Active,
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(_ *cobra.Command, _ []string) error {
		app := mustCreateApplication()
		defer app.cleanup()

		if err := repository.Migrate(context.Background(), app.db); err != nil {
			return err
		}
		logrus.Info("schema_migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tenantsCmd)
	rootCmd.AddCommand(gatewaysCmd)
	rootCmd.AddCommand(migrateCmd)
	tenantsCmd.AddCommand(tenantsCreateCmd)
	gatewaysCmd.AddCommand(gatewaysConfigureCmd)

	tenantsCreateCmd.Flags().StringVar(&tenantName, "name", "", "Tenant display name")
	_ = tenantsCreateCmd.MarkFlagRequired("name")

	gatewaysConfigureCmd.Flags().StringVar(&gatewayTenantID, "tenant", "", "Tenant id")
	gatewaysConfigureCmd.Flags().StringVar(&gatewayName, "name", "", "Gateway name (MOCK, STRIPE, MERCADOPAGO)")
	gatewaysConfigureCmd.Flags().StringToStringVar(&gatewayParams, "param", nil, "Credential parameter as key=value, repeatable")
	gatewaysConfigureCmd.Flags().Int32Var(&gatewayPriority, "priority", 0, "Routing priority")
	_ = gatewaysConfigureCmd.MarkFlagRequired("tenant")
	_ = gatewaysConfigureCmd.MarkFlagRequired("name")
	_ = gatewaysConfigureCmd.MarkFlagRequired("param")
}
