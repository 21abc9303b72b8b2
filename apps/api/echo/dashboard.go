package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const recentReceiptsCount = 5

type DashboardResponse struct {
	RecentReceipts []ReceiptResponse `json:"recent_receipts"`
	TotalReceipts  int               `json:"total_receipts"`
	TotalClients   int               `json:"total_clients"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Currency       string            `json:"currency"`
}

func registerDashboardAPI(g *echo.Group, opts *Options) {
	api := newReceiptApi(opts)
	g.GET("/dashboard", api.dashboard)
}

func (api *receiptApi) dashboard(ctx echo.Context) error {
	c := ctx.Request().Context()
	userID := getContextUser(ctx).ID

	recent, err := api.svc.Recent(c, userID, recentReceiptsCount)
	if err != nil {
		return errors.Wrap(err, "getting recent receipts")
	}
	resp := DashboardResponse{}
	if resp.RecentReceipts, err = api.withClients(c, userID, recent); err != nil {
		return err
	}
	if resp.TotalReceipts, err = api.svc.Count(c, userID); err != nil {
		return errors.Wrap(err, "counting receipts")
	}
	if resp.TotalClients, err = api.clientSvc.Count(c, userID); err != nil {
		return errors.Wrap(err, "counting clients")
	}
	if resp.TotalAmount, err = api.svc.TotalAmount(c, userID); err != nil {
		return errors.Wrap(err, "summing receipts")
	}
	prefs, err := api.settingsSvc.Get(c, userID)
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	resp.Currency = prefs.Currency
	return ctx.JSON(http.StatusOK, resp)
}
