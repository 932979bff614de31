package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/middleware"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/model"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/verify"
)

// cacheMaxAge is how long a provider payload stays servable without a fresh
// lookup.
const cacheMaxAge = 24 * time.Hour

// VerifyHandler proxies GSTIN and PAN verification through the provider with
// a 24 hour MySQL cache in front.
type VerifyHandler struct {
	client *verify.Client
	cache  *repository.VerifyRepo
}

// NewVerifyHandler builds the verification handler.
func NewVerifyHandler(client *verify.Client, cache *repository.VerifyRepo) *VerifyHandler {
	return &VerifyHandler{client: client, cache: cache}
}

// GST handles GET /gst/verify?gstin=. The response marks whether it came
// from cache or a live provider call.
func (h *VerifyHandler) GST(c echo.Context) error {
	middleware.Annotate(c, "GST_VERIFY", "gst")
	gstin := strings.ToUpper(strings.TrimSpace(c.QueryParam("gstin")))
	if !verify.ValidGSTIN(gstin) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid GSTIN"})
	}

	ctx := c.Request().Context()
	if cached, err := h.cache.Get(ctx, "gst", gstin, cacheMaxAge); err == nil {
		return c.JSON(http.StatusOK, gstResponse("cache", gstin, json.RawMessage(cached.Payload)))
	}

	payload, err := h.client.FetchGST(ctx, gstin)
	if err != nil {
		return providerFailure(c, "GST", err)
	}

	norm := verify.NormalizeGST(payload)
	row := model.VerifyCache{ID: gstin, Payload: string(payload), Status: norm.Status}
	if err := h.cache.Put(ctx, "gst", row); err != nil {
		c.Logger().Errorf("gst cache put %s: %v", gstin, err)
	}
	return c.JSON(http.StatusOK, gstResponse("live", gstin, payload))
}

// PAN handles GET /pan/verify?pan=&name=.
func (h *VerifyHandler) PAN(c echo.Context) error {
	middleware.Annotate(c, "PAN_VERIFY", "pan")
	pan := strings.ToUpper(strings.TrimSpace(c.QueryParam("pan")))
	if !verify.ValidPAN(pan) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid PAN"})
	}
	holderName := strings.TrimSpace(c.QueryParam("name"))

	ctx := c.Request().Context()
	if cached, err := h.cache.Get(ctx, "pan", pan, cacheMaxAge); err == nil {
		return c.JSON(http.StatusOK, panResponse("cache", pan, json.RawMessage(cached.Payload)))
	}

	payload, err := h.client.FetchPAN(ctx, pan, holderName)
	if err != nil {
		return providerFailure(c, "PAN", err)
	}

	norm := verify.NormalizePAN(payload)
	row := model.VerifyCache{ID: pan, Payload: string(payload), Status: norm.Status, HolderName: norm.HolderName}
	if err := h.cache.Put(ctx, "pan", row); err != nil {
		c.Logger().Errorf("pan cache put %s: %v", pan, err)
	}
	return c.JSON(http.StatusOK, panResponse("live", pan, payload))
}

func gstResponse(source, gstin string, payload json.RawMessage) echo.Map {
	n := verify.NormalizeGST(payload)
	return echo.Map{
		"source":           source,
		"gstin":            gstin,
		"legalName":        n.LegalName,
		"tradeName":        n.TradeName,
		"status":           n.Status,
		"constitution":     n.Constitution,
		"address":          n.Address,
		"stateCode":        n.StateCode,
		"registrationDate": n.RegistrationDate,
		"raw":              n.Raw,
	}
}

func panResponse(source, pan string, payload json.RawMessage) echo.Map {
	n := verify.NormalizePAN(payload)
	return echo.Map{
		"source":      source,
		"pan":         pan,
		"valid":       n.Valid,
		"holder_name": n.HolderName,
		"status":      n.Status,
		"raw":         n.Raw,
	}
}

func providerFailure(c echo.Context, kind string, err error) error {
	if errors.Is(err, verify.ErrNotConfigured) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": kind + " provider not configured"})
	}
	var pe *verify.ProviderError
	if errors.As(err, &pe) {
		status := pe.StatusCode
		if status < 400 {
			status = http.StatusBadRequest
		}
		return c.JSON(status, echo.Map{"error": kind + " provider error", "info": pe.Info})
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": kind + " provider unreachable"})
}
