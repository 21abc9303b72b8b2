package echoapi

import (
	"bytes"
	"context"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/settings"
	"github.com/trezcool/quickreceipt/services/render"
	"github.com/trezcool/quickreceipt/services/share"
)

var errReceiptNotFoundInCtx = errors.New("receipt object not found in echo.Context")

// ReceiptResponse is a receipt along with its client, when it still exists.
type ReceiptResponse struct {
	receipt.Receipt
	Client *client.Client `json:"client"`
}

type receiptApi struct {
	svc         *receipt.Service
	clientSvc   *client.Service
	companySvc  *company.Service
	settingsSvc *settings.Service
	renderer    *render.Renderer
	shareSvc    *sharesvc.Service
	emailSvc    core.EmailService
	tr          *core.Translations
	validate    *validator.Validate
	metrics     *metrics
}

func newReceiptApi(opts *Options) *receiptApi {
	return &receiptApi{
		svc:         opts.ReceiptSvc,
		clientSvc:   opts.ClientSvc,
		companySvc:  opts.CompanySvc,
		settingsSvc: opts.SettingsSvc,
		renderer:    opts.Renderer,
		shareSvc:    opts.ShareSvc,
		emailSvc:    opts.EmailSvc,
		tr:          opts.Translations,
		validate:    opts.Validate,
	}
}

func registerReceiptAPI(g *echo.Group, opts *Options, m *metrics) {
	api := newReceiptApi(opts)
	api.metrics = m

	rg := g.Group("/receipts")
	rg.GET("", api.query)
	rg.POST("", api.create)

	// detail endpoints
	dg := rg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.GET("/pdf", api.pdf)
	dg.GET("/thermal", api.thermal)
	dg.GET("/share", api.share)
	dg.POST("/email", api.email)
}

// registerPublicShareAPI serves the PDF behind a signed share link, without a session.
func registerPublicShareAPI(e *echo.Echo, opts *Options) {
	api := newReceiptApi(opts)
	e.GET("/s/:token", api.sharedPDF)
}

// objectMiddleware loads the user's receipt identified by the `id` path param.
func (api *receiptApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r, err := api.svc.Get(ctx.Request().Context(), getContextUser(ctx).ID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting receipt")
		}
		ctx.Set("object", r)
		return next(ctx)
	}
}

func contextReceipt(ctx echo.Context) (receipt.Receipt, error) {
	r, ok := ctx.Get("object").(receipt.Receipt)
	if !ok {
		return receipt.Receipt{}, errors.Wrap(errReceiptNotFoundInCtx, "retrieving object from context")
	}
	return r, nil
}

// renderContext gathers what the documents of r need. A deleted client or company is left out.
func (api *receiptApi) renderContext(ctx context.Context, r receipt.Receipt) (render.Context, error) {
	prefs, err := api.settingsSvc.Get(ctx, r.UserID)
	if err != nil {
		return render.Context{}, errors.Wrap(err, "getting settings")
	}
	rc := render.Context{
		Receipt:  r,
		Settings: prefs,
		Locale:   prefs.Locale,
		Currency: prefs.Currency,
	}

	if r.ClientID.Valid {
		c, err := api.clientSvc.Get(ctx, r.UserID, r.ClientID.String)
		switch {
		case err == nil:
			rc.Client = &c
		case errors.Cause(err) != client.ErrNotFound:
			return render.Context{}, errors.Wrap(err, "getting client")
		}
	}
	if r.CompanyID.Valid {
		c, err := api.companySvc.Get(ctx, r.UserID, r.CompanyID.String)
		switch {
		case err == nil:
			rc.Company = &c
		case errors.Cause(err) != company.ErrNotFound:
			return render.Context{}, errors.Wrap(err, "getting company")
		}
	}
	return rc, nil
}

func (api *receiptApi) query(ctx echo.Context) error {
	filter := new(receipt.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ReceiptResponse{})
	}
	filter.Clean()

	userID := getContextUser(ctx).ID
	receipts, err := api.svc.Query(ctx.Request().Context(), userID, *filter)
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	resp, err := api.withClients(ctx.Request().Context(), userID, receipts)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *receiptApi) withClients(ctx context.Context, userID string, receipts []receipt.Receipt) ([]ReceiptResponse, error) {
	clients, err := api.clientSvc.Map(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "mapping clients")
	}
	resp := make([]ReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		rr := ReceiptResponse{Receipt: r}
		if c, ok := clients[r.ClientID.String]; ok && r.ClientID.Valid {
			rr.Client = &c
		}
		resp = append(resp, rr)
	}
	return resp, nil
}

func (api *receiptApi) create(ctx echo.Context) error {
	var data receipt.NewReceipt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReceipt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), getContextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating receipt")
	}
	api.metrics.receiptsCreated.Inc()
	return ctx.JSON(http.StatusCreated, r)
}

func (api *receiptApi) retrieve(ctx echo.Context) error {
	r, err := contextReceipt(ctx)
	if err != nil {
		return err
	}
	resp, err := api.withClients(ctx.Request().Context(), r.UserID, []receipt.Receipt{r})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp[0])
}

func (api *receiptApi) destroy(ctx echo.Context) error {
	r, err := contextReceipt(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), r.UserID, r.ID); err != nil {
		return errors.Wrap(err, "deleting receipt")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *receiptApi) pdf(ctx echo.Context) error {
	r, err := contextReceipt(ctx)
	if err != nil {
		return err
	}
	return api.streamPDF(ctx, r)
}

func (api *receiptApi) streamPDF(ctx echo.Context, r receipt.Receipt) error {
	rc, err := api.renderContext(ctx.Request().Context(), r)
	if err != nil {
		return err
	}
	buf, err := api.renderer.PDF(rc)
	if err != nil {
		return errors.Wrap(err, "rendering pdf")
	}
	return streamAttachment(ctx, buf, "application/pdf", render.PDFFilename(r.ReceiptNumber))
}

func (api *receiptApi) thermal(ctx echo.Context) error {
	r, err := contextReceipt(ctx)
	if err != nil {
		return err
	}
	rc, err := api.renderContext(ctx.Request().Context(), r)
	if err != nil {
		return err
	}
	buf, err := api.renderer.Thermal(rc)
	if err != nil {
		return errors.Wrap(err, "rendering thermal receipt")
	}
	return streamAttachment(ctx, buf, "image/png", render.ThermalFilename(r.ReceiptNumber))
}

func streamAttachment(ctx echo.Context, buf *bytes.Buffer, contentType, filename string) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return ctx.Stream(http.StatusOK, contentType, buf)
}

func (api *receiptApi) share(ctx echo.Context) error {
	r, err := contextReceipt(ctx)
	if err != nil {
		return err
	}
	rc, err := api.renderContext(ctx.Request().Context(), r)
	if err != nil {
		return err
	}
	msg, err := api.shareSvc.Build(rc)
	if err != nil {
		return errors.Wrap(err, "building share message")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *receiptApi) email(ctx echo.Context) error {
	r, err := contextReceipt(ctx)
	if err != nil {
		return err
	}
	rc, err := api.renderContext(ctx.Request().Context(), r)
	if err != nil {
		return err
	}
	if rc.Client == nil || rc.Client.Email == "" {
		return errClientHasNoEmail
	}

	buf, err := api.renderer.PDF(rc)
	if err != nil {
		return errors.Wrap(err, "rendering pdf")
	}
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: rc.Client.Name, Address: rc.Client.Email}},
		Subject: api.tr.T(rc.Locale, "receipt") + " " + r.ReceiptNumber,
		BodyStr: api.tr.T(rc.Locale, "email_body", rc.Client.Name, r.ReceiptNumber, rc.CompanyName()),
	}
	if err = msg.Attach(buf, render.PDFFilename(r.ReceiptNumber), "application/pdf"); err != nil {
		return errors.Wrap(err, "attaching pdf")
	}
	api.emailSvc.SendMessages(msg)

	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "The receipt was sent to " + rc.Client.Email + "."})
}

func (api *receiptApi) sharedPDF(ctx echo.Context) error {
	userID, receiptID, err := api.shareSvc.Parse(ctx.Param("token"))
	if err != nil {
		return errHttpNotFound
	}
	r, err := api.svc.Get(ctx.Request().Context(), userID, receiptID)
	if err != nil {
		if errors.Cause(err) == receipt.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting receipt")
	}
	return api.streamPDF(ctx, r)
}
