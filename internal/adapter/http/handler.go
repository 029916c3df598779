package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"harvesthorizon/internal/app/action"
	"harvesthorizon/internal/app/maps"
	"harvesthorizon/internal/app/mapview"
	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/app/replay"
	"harvesthorizon/internal/app/status"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/protocol"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const ownerIDHeader = "X-Owner-ID"

type Handler struct {
	MapsUC    maps.UseCase
	MapViewUC mapview.UseCase
	ActionUC  action.UseCase
	StatusUC  status.UseCase
	ReplayUC  replay.UseCase
	Gate      ports.OwnershipGate
	KPI       kpiSnapshotProvider

	// CORSOrigin pins Access-Control-Allow-Origin; empty allows any origin.
	CORSOrigin string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(newCORSPolicy(h.CORSOrigin).middleware())

	api := s.Group("/api")
	api.POST("/maps", h.createMap)
	api.GET("/maps/:id", h.getMap)
	api.DELETE("/maps/:id", h.deleteMap)
	api.POST("/maps/:id/actions", h.action)
	api.GET("/maps/:id/outcomes", h.outcomes)
	api.GET("/owners/:id/status", h.status)

	s.GET("/ops/kpi", h.kpi)
}

type createMapRequest struct {
	Nickname string `json:"nickname"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Seed     int64  `json:"seed"`
}

type actionRequest struct {
	RequestID  string       `json:"request_id,omitempty"`
	ActionKind string       `json:"action_kind"`
	Coords     []farm.Coord `json:"coords"`
	CropType   string       `json:"crop_type,omitempty"`
	CropLevel  int          `json:"crop_level,omitempty"`
}

func (h Handler) createMap(c context.Context, ctx *app.RequestContext) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body createMapRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json", nil)
		return
	}
	resp, err := h.MapsUC.Create(c, maps.CreateRequest{
		OwnerID:  ownerID,
		Nickname: body.Nickname,
		Width:    body.Width,
		Height:   body.Height,
		Seed:     body.Seed,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) getMap(c context.Context, ctx *app.RequestContext) {
	ownerID, mapID, err := h.authorizeMap(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	resp, err := h.MapViewUC.Execute(c, mapview.Request{MapID: mapID, OwnerID: ownerID})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp.Sync())
}

func (h Handler) deleteMap(c context.Context, ctx *app.RequestContext) {
	_, mapID, err := h.authorizeMap(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if err := h.MapsUC.Delete(c, maps.DeleteRequest{MapID: mapID}); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) action(c context.Context, ctx *app.RequestContext) {
	ownerID, mapID, err := h.authorizeMap(c, ctx)
	if err != nil {
		writeActionRejected(ctx, err)
		return
	}
	var body actionRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json", nil)
		return
	}
	if err := validateIntent(body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, protocol.ReasonBadRequest, err.Error(), nil)
		return
	}

	resp, err := h.ActionUC.Execute(c, action.Request{
		OwnerID:   ownerID,
		MapID:     mapID,
		RequestID: body.RequestID,
		Intent: farm.Intent{
			Kind:      farm.ActionKind(body.ActionKind),
			Coords:    body.Coords,
			CropType:  farm.CropType(body.CropType),
			CropLevel: body.CropLevel,
		},
	})
	if err != nil {
		writeActionRejected(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) outcomes(c context.Context, ctx *app.RequestContext) {
	_, mapID, err := h.authorizeMap(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	occurredFrom, _ := strconv.ParseInt(string(ctx.Query("occurred_from")), 10, 64)
	occurredTo, _ := strconv.ParseInt(string(ctx.Query("occurred_to")), 10, 64)
	resp, err := h.ReplayUC.Execute(c, replay.Request{
		MapID:        mapID,
		Limit:        limit,
		OccurredFrom: occurredFrom,
		OccurredTo:   occurredTo,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) status(c context.Context, ctx *app.RequestContext) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if ownerID != strings.TrimSpace(ctx.Param("id")) {
		writeError(ctx, ports.ErrForbidden)
		return
	}
	resp, err := h.StatusUC.Execute(c, status.Request{OwnerID: ownerID})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured", nil)
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

var ErrMissingOwnerHeader = errors.New("missing x-owner-id header")

func requireOwner(ctx *app.RequestContext) (string, error) {
	ownerID := strings.TrimSpace(string(ctx.GetHeader(ownerIDHeader)))
	if ownerID == "" {
		return "", ErrMissingOwnerHeader
	}
	return ownerID, nil
}

func (h Handler) authorizeMap(c context.Context, ctx *app.RequestContext) (string, string, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return "", "", err
	}
	mapID := strings.TrimSpace(ctx.Param("id"))
	if h.Gate != nil {
		if err := h.Gate.Authorize(c, ownerID, mapID); err != nil {
			return "", "", err
		}
	}
	return ownerID, mapID, nil
}

// validateIntent runs the REST body through the same schema the websocket
// transport enforces.
func validateIntent(body actionRequest) error {
	raw, err := json.Marshal(protocol.IntentMsg{
		Type:       protocol.TypeIntent,
		RequestID:  body.RequestID,
		ActionKind: body.ActionKind,
		Coords:     body.Coords,
		CropType:   body.CropType,
		CropLevel:  body.CropLevel,
	})
	if err != nil {
		return err
	}
	return protocol.ValidateIntent(raw)
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, ErrMissingOwnerHeader):
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_owner_id", err.Error(), nil)
	case errors.Is(err, maps.ErrInvalidRequest),
		errors.Is(err, mapview.ErrInvalidRequest),
		errors.Is(err, replay.ErrInvalidRequest),
		errors.Is(err, status.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, ports.ErrForbidden):
		writeErrorBody(ctx, consts.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error(), nil)
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string, details map[string]any) {
	errObj := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		errObj["details"] = details
	}
	ctx.JSON(status, map[string]any{"error": errObj})
}

// writeActionRejected reports a whole-batch failure with the same reason code
// a websocket client would receive in action_failed.
func writeActionRejected(ctx *app.RequestContext, err error) {
	if errors.Is(err, ErrMissingOwnerHeader) {
		writeError(ctx, err)
		return
	}
	reason := action.FailureReason(err)
	message := err.Error()
	if reason == protocol.ReasonInternal {
		message = "internal error"
	}
	ctx.JSON(actionRejectedStatus(reason), map[string]any{
		"result_code": "REJECTED",
		"error": map[string]any{
			"code":    reason,
			"message": message,
			"details": action.FailureContext(err),
		},
	})
}

func actionRejectedStatus(reason string) int {
	switch reason {
	case protocol.ReasonBadRequest:
		return consts.StatusBadRequest
	case protocol.ReasonForbidden:
		return consts.StatusForbidden
	case protocol.ReasonMapNotFound, protocol.ReasonLedgerNotFound:
		return consts.StatusNotFound
	case protocol.ReasonInsufficientFunds, protocol.ReasonInsufficientResource:
		return consts.StatusConflict
	case protocol.ReasonGridWriteFailed:
		return consts.StatusServiceUnavailable
	default:
		return consts.StatusInternalServerError
	}
}
