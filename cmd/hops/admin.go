package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hotelops/internal/app"
	"hotelops/internal/domain"
	"hotelops/internal/engine/auth"
	"hotelops/internal/repo"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer tokens for the HTTP API",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var subject string
	var roles []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an HS256 token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			authz := auth.New(cfg)
			for _, r := range roles {
				if !authz.KnownRole(r) {
					return fmt.Errorf("unknown role %q", r)
				}
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.Auth.TokenTTL.Std()
			}
			if subject == "" {
				subject = viper.GetString("actor-id")
			}
			token, err := auth.IssueToken(cfg.Auth.JWTSecret, subject, roles, ttl, time.Now().UTC())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": token, "subject": subject, "roles": roles, "ttl": ttl.String()})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (defaults to --actor-id)")
	cmd.Flags().StringArrayVar(&roles, "role", []string{}, "role (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime (defaults to auth.token_ttl)")
	return cmd
}

func apiKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage X-Api-Key credentials",
		Long:  "Keys are shown once on creation; only their SHA-256 hash is stored.",
	}
	cmd.AddCommand(apiKeyCreateCmd())
	cmd.AddCommand(apiKeyListCmd())
	cmd.AddCommand(apiKeyRevokeCmd())
	return cmd
}

func apiKeyCreateCmd() *cobra.Command {
	var name, role, actor string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !auth.New(a.Config).KnownRole(role) {
					return fmt.Errorf("unknown role %q", role)
				}
				if actor == "" {
					actor = viper.GetString("actor-id")
				}
				raw := "hops_" + strings.ReplaceAll(uuid.NewString(), "-", "")
				key := domain.APIKey{
					ID:        uuid.NewString(),
					ActorID:   actor,
					Name:      name,
					Role:      role,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := a.Engine.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "actor_id": key.ActorID, "role": key.Role, "key": raw})
				}
				fmt.Printf("created key %s for %s (%s)\n", key.ID, key.ActorID, key.Role)
				fmt.Println(raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label")
	cmd.Flags().StringVar(&role, "role", "", "role granted to the key")
	cmd.Flags().StringVar(&actor, "actor", "", "actor the key acts as (defaults to --actor-id)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func apiKeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				keys, err := a.Engine.Repo.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := newTable("ID", "ACTOR", "ROLE", "NAME", "CREATED")
				for _, k := range keys {
					tw.AppendRow([]any{k.ID, k.ActorID, k.Role, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor")
	return cmd
}

func apiKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Engine.Repo.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	}
}
