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

func noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage supervisor notes",
		Long:  "Estado 0 is pending, 1 in progress, 2 completed. Changing the estado of a linked note moves its working order to ASSIGNED, IN_PROGRESS or RESOLVED.",
	}
	cmd.AddCommand(noteCreateCmd())
	cmd.AddCommand(noteListCmd())
	cmd.AddCommand(noteShowCmd())
	cmd.AddCommand(noteStatusCmd())
	cmd.AddCommand(noteCristalCmd())
	cmd.AddCommand(noteUpdateCmd())
	cmd.AddCommand(noteCommentCmd())
	cmd.AddCommand(noteImageCmd())
	cmd.AddCommand(noteDeleteCmd())
	return cmd
}

func noteCreateCmd() *cobra.Command {
	var opts engine.NoteCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a standalone note",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Engine.CreateNote(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
	cmd.Flags().StringVar(&opts.SupervisorID, "supervisor", "", "supervisor id")
	cmd.Flags().StringVar(&opts.Titulo, "titulo", "", "title")
	cmd.Flags().StringVar(&opts.Actividades, "actividades", "", "activities")
	cmd.Flags().StringVar(&opts.Fecha, "fecha", "", "date, YYYY-MM-DD (defaults to today)")
	cmd.Flags().BoolVar(&opts.Cristal, "cristal", false, "glass work")
	cmd.Flags().StringVar(&opts.Imagen, "imagen", "", "primary image URL")
	_ = cmd.MarkFlagRequired("supervisor")
	_ = cmd.MarkFlagRequired("titulo")
	return cmd
}

func noteListCmd() *cobra.Command {
	var f repo.NoteFilters
	var estado int
	var cristal bool
	var limit int
	var cursor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("estado") {
				e, err := domain.ParseEstado(estado)
				if err != nil {
					return err
				}
				f.Estado = &e
			}
			if cmd.Flags().Changed("cristal") {
				f.Cristal = &cristal
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
				items, err := a.Engine.ListNotes(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "SUPERVISOR", "FECHA", "ESTADO", "CRISTAL", "WORKING ORDER", "TITULO")
				for _, n := range items {
					tw.AppendRow([]any{n.ID, n.SupervisorID, n.Fecha, estadoColor(n.Estado), n.Cristal, deref(n.WorkingOrderID), n.Titulo})
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
	cmd.Flags().StringVar(&f.SupervisorID, "supervisor", "", "supervisor filter")
	cmd.Flags().IntVar(&estado, "estado", 0, "estado filter: 0, 1 or 2")
	cmd.Flags().BoolVar(&cristal, "cristal", false, "cristal filter")
	cmd.Flags().StringVar(&f.From, "from", "", "fecha on or after, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.To, "to", "", "fecha on or before, YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "created_at|id of the last row seen")
	return cmd
}

func noteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note with comments and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Engine.GetNote(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
}

func noteStatusCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "status <id> <estado>",
		Short: "Set estado; a linked working order follows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v int
			if _, err := fmt.Sscanf(args[1], "%d", &v); err != nil {
				return fmt.Errorf("estado must be 0, 1 or 2")
			}
			estado, err := domain.ParseEstado(v)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Engine.SetNoteStatus(ctx, args[0], estado, viper.GetString("actor-id"), comment)
				if err != nil {
					return err
				}
				a.Engine.WaitSync()
				if n.WorkingOrderID != nil && !viper.GetBool("json") {
					if wo, err := a.Engine.GetWorkOrder(ctx, *n.WorkingOrderID); err == nil {
						fmt.Printf("working order %s is %s\n", wo.ID, statusColor(wo.Status))
					}
				}
				return printJSONOrTable(n)
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "status log note on the linked working order")
	return cmd
}

func noteCristalCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "cristal <id>",
		Short: "Flag a note as glass work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Engine.SetNoteCristal(ctx, args[0], !off)
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "clear the flag")
	return cmd
}

func noteUpdateCmd() *cobra.Command {
	var titulo, actividades, fecha, imagen string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update note fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.NoteUpdateOptions{ID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("titulo") {
				opts.Titulo = &titulo
			}
			if flags.Changed("actividades") {
				opts.Actividades = &actividades
			}
			if flags.Changed("fecha") {
				opts.Fecha = &fecha
			}
			if flags.Changed("imagen") {
				opts.Imagen = &imagen
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.Engine.UpdateNote(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
	cmd.Flags().StringVar(&titulo, "titulo", "", "title")
	cmd.Flags().StringVar(&actividades, "actividades", "", "activities")
	cmd.Flags().StringVar(&fecha, "fecha", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&imagen, "imagen", "", "primary image URL; empty clears")
	return cmd
}

func noteCommentCmd() *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:   "comment <id>",
		Short: "Comment on a note; @name mentions are recorded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.AddNoteComment(ctx, args[0], viper.GetString("actor-id"), body)
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

func noteImageCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "image <id>",
		Short: "Attach an image URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				img, err := a.Engine.AddNoteImage(ctx, args[0], url)
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

func noteDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note; a linked working order can be converted again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Engine.DeleteNote(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}
