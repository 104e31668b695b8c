package control

import (
	"context"

	"github.com/hazyhaar/xdswitch/kit"
)

type applyRequest struct {
	TabID string `json:"tab_id"`
	Mode  string `json:"mode"`
}

type statusRequest struct {
	URL string `json:"url"`
}

type reconcileRequest struct {
	TabID string `json:"tab_id"`
}

type tabsRequest struct{}

type activateRequest struct {
	TabID string `json:"tab_id"`
}

type openRequest struct {
	URL string `json:"url"`
}

type journalRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Endpoints are the service operations in kit form, shared by HTTP and MCP.
type Endpoints struct {
	Apply     kit.Endpoint
	Status    kit.Endpoint
	Reconcile kit.Endpoint
	Tabs      kit.Endpoint
	Activate  kit.Endpoint
	Open      kit.Endpoint
	Journal   kit.Endpoint
}

// NewEndpoints wraps s with the logging middleware.
func NewEndpoints(s *Service) Endpoints {
	mw := func(name string) kit.Middleware {
		return kit.Chain(kit.Logging(s.logger(), name))
	}
	return Endpoints{
		Apply: mw("apply")(func(ctx context.Context, req any) (any, error) {
			r := req.(*applyRequest)
			return s.Apply(ctx, r.TabID, r.Mode)
		}),
		Status: mw("status")(func(ctx context.Context, req any) (any, error) {
			return s.Status(ctx, req.(*statusRequest).URL)
		}),
		Reconcile: mw("reconcile")(func(ctx context.Context, req any) (any, error) {
			return s.Reconcile(ctx, req.(*reconcileRequest).TabID)
		}),
		Tabs: mw("tabs")(func(ctx context.Context, _ any) (any, error) {
			return s.List(ctx)
		}),
		Activate: mw("activate")(func(ctx context.Context, req any) (any, error) {
			return s.Activate(ctx, req.(*activateRequest).TabID)
		}),
		Open: mw("open")(func(ctx context.Context, req any) (any, error) {
			return s.Open(ctx, req.(*openRequest).URL)
		}),
		Journal: mw("journal")(func(ctx context.Context, req any) (any, error) {
			return s.History(ctx, req.(*journalRequest).Limit)
		}),
	}
}
