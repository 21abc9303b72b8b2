package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/services/upload"
)

var errCompanyNotFoundInCtx = errors.New("company object not found in echo.Context")

type companyApi struct {
	svc       *company.Service
	uploadSvc *uploadsvc.Service
	validate  *validator.Validate
	logger    core.Logger
}

func registerCompanyAPI(g *echo.Group, opts *Options) {
	api := companyApi{
		svc:       opts.CompanySvc,
		uploadSvc: opts.UploadSvc,
		validate:  opts.Validate,
		logger:    opts.Logger,
	}

	cg := g.Group("/companies")
	cg.GET("", api.query)
	cg.POST("", api.create)

	// detail endpoints
	dg := cg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/logo", api.uploadLogo)
}

// objectMiddleware loads the user's company identified by the `id` path param.
func (api *companyApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := api.svc.Get(ctx.Request().Context(), getContextUser(ctx).ID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting company")
		}
		ctx.Set("object", c)
		return next(ctx)
	}
}

func (api *companyApi) query(ctx echo.Context) error {
	companies, err := api.svc.Query(ctx.Request().Context(), getContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying companies")
	}
	return ctx.JSON(http.StatusOK, companies)
}

func (api *companyApi) create(ctx echo.Context) error {
	var data company.CompanyData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompanyData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), getContextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating company")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *companyApi) retrieve(ctx echo.Context) error {
	c, ok := ctx.Get("object").(company.Company)
	if !ok {
		return errors.Wrap(errCompanyNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *companyApi) update(ctx echo.Context) error {
	c, ok := ctx.Get("object").(company.Company)
	if !ok {
		return errors.Wrap(errCompanyNotFoundInCtx, "retrieving object from context")
	}

	var data company.CompanyData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompanyData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating company")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *companyApi) destroy(ctx echo.Context) error {
	c, ok := ctx.Get("object").(company.Company)
	if !ok {
		return errors.Wrap(errCompanyNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), c.UserID, c.ID); err != nil {
		return errors.Wrap(err, "deleting company")
	}
	api.removeUpload(c.Logo)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *companyApi) uploadLogo(ctx echo.Context) error {
	c, ok := ctx.Get("object").(company.Company)
	if !ok {
		return errors.Wrap(errCompanyNotFoundInCtx, "retrieving object from context")
	}

	logo, err := saveUpload(ctx, api.uploadSvc, "logo", uploadsvc.KindLogo)
	if err != nil {
		return err
	}
	old := c.Logo
	if c, err = api.svc.SetLogo(ctx.Request().Context(), c, logo); err != nil {
		api.removeUpload(logo)
		return errors.Wrap(err, "setting company logo")
	}
	api.removeUpload(old)
	return ctx.JSON(http.StatusOK, c)
}

func (api *companyApi) removeUpload(url string) {
	if err := api.uploadSvc.Remove(url); err != nil {
		api.logger.Warn("removing upload", err)
	}
}

// saveUpload stores the image posted in the multipart `field`; invalid uploads are reported on that field.
func saveUpload(ctx echo.Context, svc *uploadsvc.Service, field string, kind uploadsvc.Kind) (string, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return "", core.NewFieldError(field, "no file was submitted")
	}
	f, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	url, err := svc.Save(kind, fh.Filename, f)
	if err != nil {
		switch errors.Cause(err) {
		case uploadsvc.ErrInvalidExtension, uploadsvc.ErrTooLarge, uploadsvc.ErrInvalidImage:
			return "", core.NewFieldError(field, errors.Cause(err).Error())
		}
		return "", errors.Wrap(err, "saving upload")
	}
	return url, nil
}
