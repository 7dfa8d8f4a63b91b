package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/marketloft/sessiongate/internal/errors"
	"github.com/marketloft/sessiongate/internal/model"
	"github.com/marketloft/sessiongate/internal/service"
	"github.com/marketloft/sessiongate/internal/util"
)

var validExchanges = []string{"NSE", "BSE", "NFO", "BFO", "CDS", "BCD", "MCX", "NSEIX"}

type InstrumentHandler struct {
	instrumentService *service.InstrumentService
}

func NewInstrumentHandler(instrumentService *service.InstrumentService) *InstrumentHandler {
	return &InstrumentHandler{
		instrumentService: instrumentService,
	}
}

func (h *InstrumentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Query)
	r.Post("/refresh", h.Refresh)

	return r
}

// GET /api/v1/instruments
func (h *InstrumentHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if !util.IsValidEnum(q.Get("exchange"), validExchanges) {
		writeError(w, apperrors.InvalidInput("exchange", "unknown exchange"))
		return
	}

	filter := model.InstrumentFilter{
		Exchange:       q.Get("exchange"),
		Tradingsymbol:  q.Get("tradingsymbol"),
		Name:           q.Get("name"),
		Expiry:         q.Get("expiry"),
		Strike:         q.Get("strike"),
		Segment:        q.Get("segment"),
		InstrumentType: q.Get("instrument_type"),
	}
	if limit := q.Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	if offset := q.Get("offset"); offset != "" {
		filter.Offset, _ = strconv.Atoi(offset)
	}

	instruments, err := h.instrumentService.Query(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("instrument query failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(instruments),
		"instruments": instruments,
	})
}

// POST /api/v1/instruments/refresh forces a mirror rebuild regardless of
// freshness.
func (h *InstrumentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.instrumentService.Refresh(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("instrument refresh failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
