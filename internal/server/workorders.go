package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"hotelops/internal/domain"
	"hotelops/internal/engine"
	"hotelops/internal/repo"
)

type workOrderPath struct {
	ID string `path:"id"`
}

func registerWorkOrders(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-working-order",
		Method:        http.MethodPost,
		Path:          "/working-orders",
		Summary:       "Create working order",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkOrderRequest `json:"body"`
	}) (*struct {
		Body domain.WorkingOrder `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "wo.create")
		if authErr != nil {
			return nil, authErr
		}
		if len(requestBody(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		wo, err := e.CreateWorkOrder(ctx, engine.WorkOrderCreateOptions{
			RoomID:         input.Body.RoomID,
			RoomNumber:     input.Body.RoomNumber,
			StayFrom:       input.Body.StayFrom,
			StayTo:         input.Body.StayTo,
			Summary:        input.Body.Summary,
			Detail:         input.Body.Detail,
			Source:         input.Body.Source,
			Category:       input.Body.Category,
			Severity:       input.Body.Severity,
			AssignedTo:     input.Body.AssignedTo,
			HasPendingNext: input.Body.HasPendingNext,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.WorkingOrder `json:"body"`
		}{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-working-orders",
		Method:      http.MethodGet,
		Path:        "/working-orders",
		Summary:     "List working orders",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status"`
		Severity   string `query:"severity"`
		Source     string `query:"source"`
		RoomNumber string `query:"room_number"`
		AssignedTo string `query:"assigned_to"`
		Category   string `query:"category"`
		Linked     string `query:"linked" doc:"true for orders with a note, false for orders without"`
		From       string `query:"from" doc:"created on or after, YYYY-MM-DD"`
		To         string `query:"to" doc:"created on or before, YYYY-MM-DD"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedWorkOrders `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "wo.read"); authErr != nil {
			return nil, authErr
		}
		linked, qErr := parseBoolQuery("linked", input.Linked)
		if qErr != nil {
			return nil, qErr
		}
		page, limit, qErr := pageRequest(input.Limit, input.Cursor)
		if qErr != nil {
			return nil, qErr
		}
		items, err := e.ListWorkOrders(ctx, repo.WorkOrderFilters{
			Status:     input.Status,
			Severity:   input.Severity,
			Source:     input.Source,
			RoomNumber: input.RoomNumber,
			AssignedTo: input.AssignedTo,
			Category:   input.Category,
			Linked:     linked,
			From:       input.From,
			To:         input.To,
			Page:       page,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		resp := splitPage(items, limit, func(wo domain.WorkingOrder) (string, string) { return wo.CreatedAt, wo.ID })
		return &struct {
			Body paginatedWorkOrders `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "working-order-stats",
		Method:      http.MethodGet,
		Path:        "/working-orders/stats",
		Summary:     "Working order counters",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.WorkOrderStats `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "wo.read"); authErr != nil {
			return nil, authErr
		}
		stats, err := e.Stats(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.WorkOrderStats `json:"body"`
		}{Body: stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "working-order-categories",
		Method:      http.MethodGet,
		Path:        "/working-orders/categories",
		Summary:     "Category suggestions",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []string `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "wo.read"); authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body []string `json:"body"`
		}{Body: e.Categories()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-working-order",
		Method:      http.MethodGet,
		Path:        "/working-orders/{id}",
		Summary:     "Get working order with images, comments and status logs",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *workOrderPath) (*struct {
		Body domain.WorkingOrder `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "wo.read"); authErr != nil {
			return nil, authErr
		}
		wo, err := e.GetWorkOrder(ctx, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.WorkingOrder `json:"body"`
		}{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-working-order",
		Method:      http.MethodPatch,
		Path:        "/working-orders/{id}",
		Summary:     "Update working order",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateWorkOrderRequest `json:"body"`
	}) (*struct {
		Body domain.WorkingOrder `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "wo.update")
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.WorkOrderUpdateOptions{
			ID:             input.ID,
			Summary:        input.Body.Summary,
			Detail:         input.Body.Detail,
			Category:       input.Body.Category,
			Severity:       input.Body.Severity,
			AssignedTo:     input.Body.AssignedTo,
			HasPendingNext: input.Body.HasPendingNext,
			Note:           input.Body.Note,
			Force:          input.Body.Force,
			ActorID:        actorID,
		}
		if input.Body.Status != nil {
			opts.Status = *input.Body.Status
		}
		if explicitNull(ctx, "assigned_to") {
			empty := ""
			opts.AssignedTo = &empty
		}
		wo, err := e.UpdateWorkOrder(ctx, opts)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.WorkingOrder `json:"body"`
		}{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-working-order",
		Method:        http.MethodDelete,
		Path:          "/working-orders/{id}",
		Summary:       "Delete working order",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *workOrderPath) (*struct{}, error) {
		if _, authErr := authorize(ctx, authCfg, "wo.delete"); authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteWorkOrder(ctx, input.ID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-working-order-status-logs",
		Method:      http.MethodGet,
		Path:        "/working-orders/{id}/status-logs",
		Summary:     "Status log of a working order",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *workOrderPath) (*struct {
		Body []domain.StatusLog `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "wo.read"); authErr != nil {
			return nil, authErr
		}
		logs, err := e.StatusLogs(ctx, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		if logs == nil {
			logs = []domain.StatusLog{}
		}
		return &struct {
			Body []domain.StatusLog `json:"body"`
		}{Body: logs}, nil
	})
}

func registerWorkOrderActions(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "assign-working-order",
		Method:      http.MethodPost,
		Path:        "/working-orders/{id}/assign",
		Summary:     "Assign a working order to a supervisor",
		Description: "With create_note the assignment also creates and links a note for the supervisor.",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body AssignWorkOrderRequest `json:"body"`
	}) (*struct {
		Body domain.WorkingOrder `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "wo.assign")
		if authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.Body.SupervisorID) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "supervisor_id is required", nil)
		}
		wo, err := e.AssignWorkOrder(ctx, engine.AssignOptions{
			ID:           input.ID,
			SupervisorID: input.Body.SupervisorID,
			Note:         input.Body.Note,
			CreateNote:   input.Body.CreateNote,
			Date:         input.Body.Date,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.WorkingOrder `json:"body"`
		}{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "convert-working-order-to-note",
		Method:        http.MethodPost,
		Path:          "/working-orders/{id}/convert-to-note",
		Summary:       "Create a linked note from a working order",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body ConvertToNoteRequest `json:"body"`
	}) (*struct {
		Body ConvertToNoteResponse `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "wo.assign")
		if authErr != nil {
			return nil, authErr
		}
		wo, note, err := e.ConvertToNote(ctx, engine.ConvertOptions{
			WorkOrderID:    input.ID,
			SupervisorID:   input.Body.SupervisorID,
			Date:           input.Body.Date,
			InitialComment: input.Body.InitialComment,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body ConvertToNoteResponse `json:"body"`
		}{Body: ConvertToNoteResponse{WorkingOrder: wo, Note: note}}, nil
	})

	for _, action := range []struct {
		id, path, summary string
		apply             func(ctx context.Context, id, note, actorID string) (domain.WorkingOrder, error)
	}{
		{"resolve-working-order", "/working-orders/{id}/resolve", "Resolve a working order", e.ResolveWorkOrder},
		{"dismiss-working-order", "/working-orders/{id}/dismiss", "Dismiss a working order", e.DismissWorkOrder},
	} {
		apply := action.apply
		huma.Register(api, huma.Operation{
			OperationID: action.id,
			Method:      http.MethodPost,
			Path:        action.path,
			Summary:     action.summary,
			Errors: []int{
				http.StatusForbidden,
				http.StatusNotFound,
				http.StatusConflict,
			},
		}, func(ctx context.Context, input *struct {
			ID   string                `path:"id"`
			Body CloseWorkOrderRequest `json:"body" required:"false"`
		}) (*struct {
			Body domain.WorkingOrder `json:"body"`
		}, error) {
			actorID, authErr := authorize(ctx, authCfg, "wo.close")
			if authErr != nil {
				return nil, authErr
			}
			wo, err := apply(ctx, input.ID, input.Body.Note, actorID)
			if err != nil {
				return nil, handleError(ctx, err)
			}
			return &struct {
				Body domain.WorkingOrder `json:"body"`
			}{Body: wo}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID:   "add-working-order-comment",
		Method:        http.MethodPost,
		Path:          "/working-orders/{id}/comments",
		Summary:       "Comment on a working order",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body CommentRequest `json:"body"`
	}) (*struct {
		Body domain.WOComment `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "wo.comment")
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddWorkOrderComment(ctx, input.ID, actorID, input.Body.Body)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.WOComment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-working-order-image",
		Method:        http.MethodPost,
		Path:          "/working-orders/{id}/images",
		Summary:       "Attach an image URL to a working order",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body ImageRequest `json:"body"`
	}) (*struct {
		Body domain.WOImage `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "wo.comment"); authErr != nil {
			return nil, authErr
		}
		img, err := e.AddWorkOrderImage(ctx, input.ID, input.Body.URL)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.WOImage `json:"body"`
		}{Body: img}, nil
	})
}
