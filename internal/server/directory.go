package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"hotelops/internal/domain"
	"hotelops/internal/engine"
)

func registerRooms(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-room",
		Method:        http.MethodPost,
		Path:          "/rooms",
		Summary:       "Create room",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateRoomRequest `json:"body"`
	}) (*struct {
		Body domain.Room `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "room.write"); authErr != nil {
			return nil, authErr
		}
		room, err := e.CreateRoom(ctx, engine.RoomCreateOptions{
			Number: input.Body.Number,
			Tower:  input.Body.Tower,
			Floor:  input.Body.Floor,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.Room `json:"body"`
		}{Body: room}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-rooms",
		Method:      http.MethodGet,
		Path:        "/rooms",
		Summary:     "List rooms",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Tower string `query:"tower"`
	}) (*struct {
		Body []domain.Room `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "room.read"); authErr != nil {
			return nil, authErr
		}
		rooms, err := e.ListRooms(ctx, input.Tower)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		if rooms == nil {
			rooms = []domain.Room{}
		}
		return &struct {
			Body []domain.Room `json:"body"`
		}{Body: rooms}, nil
	})
}

func registerSupervisors(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-supervisor",
		Method:        http.MethodPost,
		Path:          "/supervisors",
		Summary:       "Create supervisor",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateSupervisorRequest `json:"body"`
	}) (*struct {
		Body domain.Supervisor `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "supervisor.write"); authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateSupervisor(ctx, engine.SupervisorCreateOptions{
			ID:    input.Body.ID,
			Name:  input.Body.Name,
			Email: input.Body.Email,
			Role:  input.Body.Role,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.Supervisor `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-supervisors",
		Method:      http.MethodGet,
		Path:        "/supervisors",
		Summary:     "List supervisors",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Active bool `query:"active" doc:"only active supervisors"`
	}) (*struct {
		Body []domain.Supervisor `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "supervisor.read"); authErr != nil {
			return nil, authErr
		}
		items, err := e.ListSupervisors(ctx, input.Active)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		if items == nil {
			items = []domain.Supervisor{}
		}
		return &struct {
			Body []domain.Supervisor `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-supervisor-active",
		Method:      http.MethodPatch,
		Path:        "/supervisors/{id}",
		Summary:     "Activate or deactivate a supervisor",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                     `path:"id"`
		Body SetSupervisorActiveRequest `json:"body"`
	}) (*struct {
		Body domain.Supervisor `json:"body"`
	}, error) {
		if _, authErr := authorize(ctx, authCfg, "supervisor.write"); authErr != nil {
			return nil, authErr
		}
		s, err := e.SetSupervisorActive(ctx, input.ID, input.Body.Active)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body domain.Supervisor `json:"body"`
		}{Body: s}, nil
	})
}
