package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"hotelops/internal/domain"
	"hotelops/internal/engine"
	"hotelops/internal/repo"
)

type notePath struct {
	ID string `path:"id"`
}

func registerNotes(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-note",
		Method:        http.MethodPost,
		Path:          "/notes",
		Summary:       "Create note",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateNoteRequest `json:"body"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "note.create")
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.CreateNote(ctx, engine.NoteCreateOptions{
			SupervisorID: input.Body.SupervisorID,
			Titulo:       input.Body.Titulo,
			Actividades:  input.Body.Actividades,
			Fecha:        input.Body.Fecha,
			Cristal:      input.Body.Cristal,
			Imagen:       input.Body.Imagen,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-notes",
		Method:      http.MethodGet,
		Path:        "/notes",
		Summary:     "List notes",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		SupervisorID string `query:"supervisor_id"`
		Estado       string `query:"estado" doc:"0 pending, 1 in progress, 2 completed"`
		Cristal      string `query:"cristal"`
		From         string `query:"from" doc:"fecha on or after, YYYY-MM-DD"`
		To           string `query:"to" doc:"fecha on or before, YYYY-MM-DD"`
		Limit        int    `query:"limit" default:"50"`
		Cursor       string `query:"cursor"`
	}) (*struct {
		Body paginatedNotes `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "note.read"); authErr != nil {
			return nil, authErr
		}
		cristal, qErr := parseBoolQuery("cristal", input.Cristal)
		if qErr != nil {
			return nil, qErr
		}
		var estado *domain.Estado
		if input.Estado != "" {
			v, err := strconv.Atoi(input.Estado)
			if err == nil {
				var es domain.Estado
				if es, err = domain.ParseEstado(v); err == nil {
					estado = &es
				}
			}
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "estado must be 0, 1 or 2", map[string]any{"estado": input.Estado})
			}
		}
		page, limit, qErr := pageRequest(input.Limit, input.Cursor)
		if qErr != nil {
			return nil, qErr
		}
		items, err := e.ListNotes(ctx, repo.NoteFilters{
			SupervisorID: input.SupervisorID,
			Estado:       estado,
			Cristal:      cristal,
			From:         input.From,
			To:           input.To,
			Page:         page,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		resp := splitPage(items, limit, func(n domain.Note) (string, string) { return n.CreatedAt, n.ID })
		return &struct {
			Body paginatedNotes `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-note",
		Method:      http.MethodGet,
		Path:        "/notes/{id}",
		Summary:     "Get note with comments and images",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *notePath) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "note.read"); authErr != nil {
			return nil, authErr
		}
		n, err := e.GetNote(ctx, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-note",
		Method:      http.MethodPatch,
		Path:        "/notes/{id}",
		Summary:     "Update note fields",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateNoteRequest `json:"body"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "note.update"); authErr != nil {
			return nil, authErr
		}
		opts := engine.NoteUpdateOptions{
			ID:          input.ID,
			Titulo:      input.Body.Titulo,
			Actividades: input.Body.Actividades,
			Fecha:       input.Body.Fecha,
			Imagen:      input.Body.Imagen,
			Cristal:     input.Body.Cristal,
		}
		if explicitNull(ctx, "imagen") {
			empty := ""
			opts.Imagen = &empty
		}
		n, err := e.UpdateNote(ctx, opts)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-note",
		Method:        http.MethodDelete,
		Path:          "/notes/{id}",
		Summary:       "Delete note",
		Description:   "A linked working order keeps its history and can be converted again.",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *notePath) (*struct{}, error) {
		if _, authErr := authorize(ctx, authCfg, "note.delete"); authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteNote(ctx, input.ID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-note-status",
		Method:      http.MethodPatch,
		Path:        "/notes/{id}/status",
		Summary:     "Set note estado",
		Description: "The linked working order follows: 0 assigned, 1 in progress, 2 resolved. Closed orders are left as they are.",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body SetNoteStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "note.update")
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.SetNoteStatus(ctx, input.ID, domain.Estado(input.Body.Estado), actorID, input.Body.Comment)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-note-comment",
		Method:        http.MethodPost,
		Path:          "/notes/{id}/comments",
		Summary:       "Comment on a note",
		Description:   "@name tokens in the body are stored as mentions.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body CommentRequest `json:"body"`
	}) (*struct {
		Body domain.NoteComment `json:"body"`
	}, error) {
		actorID, authErr := authorize(ctx, authCfg, "note.comment")
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddNoteComment(ctx, input.ID, actorID, input.Body.Body)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.NoteComment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-note-image",
		Method:        http.MethodPost,
		Path:          "/notes/{id}/images",
		Summary:       "Attach an image URL to a note",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body ImageRequest `json:"body"`
	}) (*struct {
		Body domain.NoteImage `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "note.comment"); authErr != nil {
			return nil, authErr
		}
		img, err := e.AddNoteImage(ctx, input.ID, input.Body.URL)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.NoteImage `json:"body"`
		}{Body: img}, nil
	})
}
