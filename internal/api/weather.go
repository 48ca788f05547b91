package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jeff-ai/jeff-api/internal/core"
	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

const defaultGeocodeLimit = 5

type weatherQuery struct {
	Lat   *string `query:"lat" validate:"required,latitude"`
	Lon   *string `query:"lon" validate:"required,longitude"`
	Units *string `query:"units" validate:"omitempty,oneof=standard metric imperial"`
	Lang  *string `query:"lang" validate:"omitempty,min=2,max=5"`
}

type geocodeQuery struct {
	Q     *string `query:"q" validate:"required,min=1"`
	Limit *string `query:"limit" validate:"omitempty,numeric"`
}

type weatherResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *APIHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var q weatherQuery
	if err := validation.DecodeQuery(r.URL.Query(), &q); err != nil {
		h.handleRequestError(w, r, err)
		return
	}

	query := core.WeatherQuery{Lat: *q.Lat, Lon: *q.Lon, Units: store.UnitsImperial, Lang: "en"}
	if q.Units != nil {
		query.Units = *q.Units
	}
	if q.Lang != nil {
		query.Lang = *q.Lang
	}

	data, err := h.gateway.Weather.Current(r.Context(), query)
	if err != nil {
		h.log.Error("Weather lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get weather information")
		return
	}
	writeJSON(w, http.StatusOK, weatherResponse{Message: "Weather data retrieved successfully", Data: data})
}

func (h *APIHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var q geocodeQuery
	if err := validation.DecodeQuery(r.URL.Query(), &q); err != nil {
		h.handleRequestError(w, r, err)
		return
	}

	limit := defaultGeocodeLimit
	if q.Limit != nil {
		if n, err := strconv.Atoi(*q.Limit); err == nil && n > 0 {
			limit = n
		}
	}

	locations, err := h.gateway.Weather.Geocode(r.Context(), *q.Q, limit)
	if err != nil {
		h.log.Error("Geocoding failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get location coordinates")
		return
	}
	if locations == nil {
		locations = []core.Location{}
	}
	writeJSON(w, http.StatusOK, locations)
}
