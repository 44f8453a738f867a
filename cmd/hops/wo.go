package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hotelops/internal/app"
	"hotelops/internal/domain"
	"hotelops/internal/engine"
	"hotelops/internal/repo"
)

func woCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wo",
		Aliases: []string{"workorder"},
		Short:   "Manage working orders",
		Long:    "Working orders move OPEN -> ASSIGNED -> IN_PROGRESS -> RESOLVED; DISMISSED closes without a fix. Once linked to a note, the note's estado drives the status.",
	}
	cmd.AddCommand(woCreateCmd())
	cmd.AddCommand(woListCmd())
	cmd.AddCommand(woShowCmd())
	cmd.AddCommand(woUpdateCmd())
	cmd.AddCommand(woAssignCmd())
	cmd.AddCommand(woConvertCmd())
	cmd.AddCommand(woCloseCmd("resolve", domain.StatusResolved))
	cmd.AddCommand(woCloseCmd("dismiss", domain.StatusDismissed))
	cmd.AddCommand(woDeleteCmd())
	cmd.AddCommand(woCommentCmd())
	cmd.AddCommand(woImageCmd())
	cmd.AddCommand(woLogsCmd())
	cmd.AddCommand(woStatsCmd())
	return cmd
}

func woCreateCmd() *cobra.Command {
	var opts engine.WorkOrderCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Log a guest complaint",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				wo, err := a.Engine.CreateWorkOrder(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(wo)
			})
		},
	}
	cmd.Flags().StringVar(&opts.RoomNumber, "room", "", "room number")
	cmd.Flags().StringVar(&opts.RoomID, "room-id", "", "room id")
	cmd.Flags().StringVar(&opts.StayFrom, "from", "", "stay start, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.StayTo, "to", "", "stay end, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "what the guest reported")
	cmd.Flags().StringVar(&opts.Detail, "detail", "", "details")
	cmd.Flags().StringVar(&opts.Source, "source", "", "MANUAL or MEDALLIA")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "LOW, MEDIUM, HIGH or CRITICAL")
	cmd.Flags().StringVar(&opts.AssignedTo, "assign", "", "supervisor id")
	cmd.Flags().BoolVar(&opts.HasPendingNext, "pending-next", false, "guest has a follow-up stay")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func woListCmd() *cobra.Command {
	var f repo.WorkOrderFilters
	var linked string
	var limit int
	var cursor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List working orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch linked {
			case "":
			case "true", "false":
				v := linked == "true"
				f.Linked = &v
			default:
				return fmt.Errorf("--linked must be true or false")
			}
			f.Page.Limit = limit
			if cursor != "" {
				created, id, ok := splitCursor(cursor)
				if !ok {
					return fmt.Errorf("invalid cursor %q", cursor)
				}
				f.Page.CursorCreatedAt, f.Page.CursorID = created, id
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListWorkOrders(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "ROOM", "SEVERITY", "STATUS", "ASSIGNED", "NOTE", "SUMMARY", "CREATED")
				for _, wo := range items {
					tw.AppendRow([]any{wo.ID, wo.RoomNumber, severityColor(wo.Severity), statusColor(wo.Status), deref(wo.AssignedTo), deref(wo.NoteID), wo.Summary, wo.CreatedAt})
				}
				tw.Render()
				if len(items) == limit && limit > 0 {
					last := items[len(items)-1]
					fmt.Printf("next: --cursor '%s|%s'\n", last.CreatedAt, last.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Severity, "severity", "", "severity filter")
	cmd.Flags().StringVar(&f.Source, "source", "", "source filter")
	cmd.Flags().StringVar(&f.RoomNumber, "room", "", "room number filter")
	cmd.Flags().StringVar(&f.AssignedTo, "assigned-to", "", "supervisor filter")
	cmd.Flags().StringVar(&f.Category, "category", "", "category filter")
	cmd.Flags().StringVar(&linked, "linked", "", "true or false: has a note")
	cmd.Flags().StringVar(&f.From, "from", "", "created on or after, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.To, "to", "", "created on or before, YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "created_at|id of the last row seen")
	return cmd
}

func woShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a working order with comments, images and status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				wo, err := a.Engine.GetWorkOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(wo)
			})
		},
	}
}

func woUpdateCmd() *cobra.Command {
	var summary, detail, category, severity, assignee string
	var pendingNext bool
	var opts engine.WorkOrderUpdateOptions
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields or move the status",
		Long:  "--force bypasses the transition table but never reopens a RESOLVED or DISMISSED order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			flags := cmd.Flags()
			if flags.Changed("summary") {
				opts.Summary = &summary
			}
			if flags.Changed("detail") {
				opts.Detail = &detail
			}
			if flags.Changed("category") {
				opts.Category = &category
			}
			if flags.Changed("severity") {
				opts.Severity = &severity
			}
			if flags.Changed("assign") {
				opts.AssignedTo = &assignee
			}
			if flags.Changed("pending-next") {
				opts.HasPendingNext = &pendingNext
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				wo, err := a.Engine.UpdateWorkOrder(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(wo)
			})
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "summary")
	cmd.Flags().StringVar(&detail, "detail", "", "detail")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&severity, "severity", "", "severity")
	cmd.Flags().StringVar(&assignee, "assign", "", "supervisor id; empty clears")
	cmd.Flags().BoolVar(&pendingNext, "pending-next", false, "guest has a follow-up stay")
	cmd.Flags().StringVar(&opts.Status, "status", "", "target status")
	cmd.Flags().StringVar(&opts.Note, "note", "", "status log note")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "skip the transition table")
	return cmd
}

func woAssignCmd() *cobra.Command {
	var opts engine.AssignOptions
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign a supervisor, optionally creating a linked note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				wo, err := a.Engine.AssignWorkOrder(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(wo)
			})
		},
	}
	cmd.Flags().StringVar(&opts.SupervisorID, "supervisor", "", "supervisor id")
	cmd.Flags().StringVar(&opts.Note, "note", "", "comment; becomes the note's first activity with --create-note")
	cmd.Flags().BoolVar(&opts.CreateNote, "create-note", false, "create and link a note")
	cmd.Flags().StringVar(&opts.Date, "date", "", "note fecha, YYYY-MM-DD (defaults to today)")
	_ = cmd.MarkFlagRequired("supervisor")
	return cmd
}

func woConvertCmd() *cobra.Command {
	var opts engine.ConvertOptions
	cmd := &cobra.Command{
		Use:   "convert <id>",
		Short: "Create a pending note from a working order and link them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.WorkOrderID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				wo, note, err := a.Engine.ConvertToNote(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"working_order": wo, "note": note})
			})
		},
	}
	cmd.Flags().StringVar(&opts.SupervisorID, "supervisor", "", "supervisor id")
	cmd.Flags().StringVar(&opts.Date, "date", "", "note fecha, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&opts.InitialComment, "comment", "", "initial comment")
	_ = cmd.MarkFlagRequired("supervisor")
	return cmd
}

func woCloseCmd(use string, to domain.Status) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Move a working order to %s", to),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := viper.GetString("actor-id")
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var (
					wo  domain.WorkingOrder
					err error
				)
				if to == domain.StatusResolved {
					wo, err = a.Engine.ResolveWorkOrder(ctx, args[0], note, actor)
				} else {
					wo, err = a.Engine.DismissWorkOrder(ctx, args[0], note, actor)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(wo)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "status log note")
	return cmd
}

func woDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a working order and its children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Engine.DeleteWorkOrder(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func woCommentCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "comment <id>",
		Short: "Comment on a working order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.AddWorkOrderComment(ctx, args[0], viper.GetString("actor-id"), body)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "comment text")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func woImageCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "image <id>",
		Short: "Attach an image URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				img, err := a.Engine.AddWorkOrderImage(ctx, args[0], url)
				if err != nil {
					return err
				}
				return printJSONOrTable(img)
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "http(s) image URL")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func woLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <id>",
		Short: "Show the status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				logs, err := a.Engine.StatusLogs(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(logs)
				}
				tw := newTable("AT", "STATUS", "BY", "NOTE")
				for _, l := range logs {
					tw.AppendRow([]any{l.CreatedAt, statusColor(l.Status), deref(l.PerformedBy), l.Note})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func woStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Counts by status and severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Engine.Stats(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				tw := newTable("STATUS", "COUNT")
				for _, s := range domain.AllStatuses() {
					tw.AppendRow([]any{statusColor(s), stats.ByStatus[string(s)]})
				}
				tw.AppendFooter([]any{"TOTAL", stats.Total})
				tw.Render()
				fmt.Printf("linked to notes: %d\n", stats.Linked)
				return nil
			})
		},
	}
}
