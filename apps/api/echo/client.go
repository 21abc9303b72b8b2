package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core/client"
)

var errClientNotFoundInCtx = errors.New("client object not found in echo.Context")

type clientApi struct {
	svc      *client.Service
	validate *validator.Validate
}

func registerClientAPI(g *echo.Group, opts *Options) {
	api := clientApi{
		svc:      opts.ClientSvc,
		validate: opts.Validate,
	}

	cg := g.Group("/clients")
	cg.GET("", api.query)
	cg.POST("", api.create)

	// detail endpoints
	dg := cg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// objectMiddleware loads the user's client identified by the `id` path param.
func (api *clientApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := api.svc.Get(ctx.Request().Context(), getContextUser(ctx).ID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting client")
		}
		ctx.Set("object", c)
		return next(ctx)
	}
}

func (api *clientApi) query(ctx echo.Context) error {
	filter := new(client.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []client.Client{})
	}
	filter.Clean()

	clients, err := api.svc.Query(ctx.Request().Context(), getContextUser(ctx).ID, *filter)
	if err != nil {
		return errors.Wrap(err, "querying clients")
	}
	return ctx.JSON(http.StatusOK, clients)
}

func (api *clientApi) create(ctx echo.Context) error {
	var data client.ClientData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClientData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), getContextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating client")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *clientApi) retrieve(ctx echo.Context) error {
	c, ok := ctx.Get("object").(client.Client)
	if !ok {
		return errors.Wrap(errClientNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *clientApi) update(ctx echo.Context) error {
	c, ok := ctx.Get("object").(client.Client)
	if !ok {
		return errors.Wrap(errClientNotFoundInCtx, "retrieving object from context")
	}

	var data client.ClientData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClientData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating client")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *clientApi) destroy(ctx echo.Context) error {
	c, ok := ctx.Get("object").(client.Client)
	if !ok {
		return errors.Wrap(errClientNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), c.UserID, c.ID); err != nil {
		return errors.Wrap(err, "deleting client")
	}
	return ctx.NoContent(http.StatusNoContent)
}
