package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hotelops/internal/app"
	"hotelops/internal/engine"
)

func roomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage rooms",
	}
	cmd.AddCommand(roomCreateCmd())
	cmd.AddCommand(roomListCmd())
	return cmd
}

func roomCreateCmd() *cobra.Command {
	var opts engine.RoomCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				room, err := a.Engine.CreateRoom(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(room)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Number, "number", "", "room number")
	cmd.Flags().StringVar(&opts.Tower, "tower", "", "tower")
	cmd.Flags().IntVar(&opts.Floor, "floor", 0, "floor")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func roomListCmd() *cobra.Command {
	var tower string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rooms, err := a.Engine.ListRooms(ctx, tower)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rooms)
				}
				tw := newTable("NUMBER", "TOWER", "FLOOR", "ID")
				for _, r := range rooms {
					tw.AppendRow([]any{r.Number, r.Tower, r.Floor, r.ID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tower, "tower", "", "filter by tower")
	return cmd
}

func supervisorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "supervisor",
		Aliases: []string{"sup"},
		Short:   "Manage supervisors",
	}
	cmd.AddCommand(supervisorCreateCmd())
	cmd.AddCommand(supervisorListCmd())
	cmd.AddCommand(supervisorActiveCmd("activate", true))
	cmd.AddCommand(supervisorActiveCmd("deactivate", false))
	return cmd
}

func supervisorCreateCmd() *cobra.Command {
	var opts engine.SupervisorCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.CreateSupervisor(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "supervisor id (generated if omitted)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Role, "role", "supervisor", "role")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func supervisorListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supervisors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListSupervisors(ctx, activeOnly)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "NAME", "EMAIL", "ROLE", "ACTIVE")
				for _, s := range items {
					active := color.GreenString("yes")
					if !s.Active {
						active = color.HiBlackString("no")
					}
					tw.AppendRow([]any{s.ID, s.Name, s.Email, s.Role, active})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active supervisors")
	return cmd
}

func supervisorActiveCmd(use string, active bool) *cobra.Command {
	short := "Reactivate a supervisor"
	if !active {
		short = "Deactivate a supervisor; existing assignments are kept"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.SetSupervisorActive(ctx, args[0], active)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}
