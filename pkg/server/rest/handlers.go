package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/ptrouter"
	"github.com/lintang-b-s/navigatorx-pt/pkg/server/rest/service"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
)

// maxFeedMessageBytes bounds the body of a realtime upload.
const maxFeedMessageBytes = 32 << 20

type PtService interface {
	Route(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error)
	RouteTripBased(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error)
	NearestStations(ctx context.Context, lat, lon, radiusKm float64, k int) ([]snap.Station, error)
	UpdateRealtime(ctx context.Context, feedID string, body []byte) (service.RealtimeSnapshot, error)
	CurrentRealtime(ctx context.Context) (service.RealtimeSnapshot, error)
}

type PtHandler struct {
	svc PtService
}

func PtRouter(r *chi.Mux, svc PtService) {
	handler := &PtHandler{svc}

	r.Group(func(r chi.Router) {
		r.Route("/api/pt", func(r chi.Router) {
			r.Post("/route", handler.Route)
			r.Post("/route-trip-based", handler.RouteTripBased)
			r.Get("/stations/nearest", handler.NearestStations)
			r.Get("/realtime", handler.CurrentRealtime)
			r.Post("/realtime/{feedID}", handler.UpdateRealtime)
		})
	})
}

// RouteRequest model info
//
//	@Description	request body untuk rute transportasi umum dari titik asal ke titik tujuan
type RouteRequest struct {
	SrcLat float64 `json:"src_lat" validate:"required,lt=90,gt=-90"`
	SrcLon float64 `json:"src_lon" validate:"required,lt=180,gt=-180"`
	DstLat float64 `json:"dst_lat" validate:"required,lt=90,gt=-90"`
	DstLon float64 `json:"dst_lon" validate:"required,lt=180,gt=-180"`
	// RFC3339, waktu paling awal berangkat (atau waktu paling lambat sampai kalau arrive_by)
	DepartureTime string `json:"departure_time" validate:"required"`
	ArriveBy      bool   `json:"arrive_by"`

	ProfileQuery              bool    `json:"profile_query"`
	MaxProfileDurationMinutes int     `json:"max_profile_duration_minutes" validate:"gte=0,lte=1440"`
	IgnoreTransfers           bool    `json:"ignore_transfers"`
	LimitSolutions            int     `json:"limit_solutions" validate:"gte=0,lte=50"`
	LimitStreetTimeSeconds    int     `json:"limit_street_time_seconds" validate:"gte=0,lte=7200"`
	BetaTransfers             float64 `json:"beta_transfers" validate:"gte=0"`
	BetaStreetTime            float64 `json:"beta_street_time" validate:"gte=0"`
	// route_type GTFS yang tidak boleh dipakai
	BlockedRouteTypes []int   `json:"blocked_route_types" validate:"dive,gte=0,lt=32"`
	WalkSpeedKmh      float64 `json:"walk_speed_kmh" validate:"gte=0,lte=30"`

	departure time.Time
}

func (s *RouteRequest) Bind(r *http.Request) error {
	if s.DepartureTime == "" {
		return errors.New("invalid request: departure_time is required")
	}
	t, err := time.Parse(time.RFC3339, s.DepartureTime)
	if err != nil {
		return fmt.Errorf("invalid request: departure_time %q is not RFC3339", s.DepartureTime)
	}
	s.departure = t
	return nil
}

func (s *RouteRequest) toPtRequest() ptrouter.Request {
	blocked := 0
	for _, routeType := range s.BlockedRouteTypes {
		blocked |= 1 << routeType
	}
	return ptrouter.Request{
		FromLat:               s.SrcLat,
		FromLon:               s.SrcLon,
		ToLat:                 s.DstLat,
		ToLon:                 s.DstLon,
		EarliestDepartureTime: s.departure,
		ArriveBy:              s.ArriveBy,
		ProfileQuery:          s.ProfileQuery,
		MaxProfileDuration:    time.Duration(s.MaxProfileDurationMinutes) * time.Minute,
		IgnoreTransfers:       s.IgnoreTransfers,
		LimitSolutions:        s.LimitSolutions,
		LimitStreetTime:       time.Duration(s.LimitStreetTimeSeconds) * time.Second,
		BetaTransfers:         s.BetaTransfers,
		BetaStreetTime:        s.BetaStreetTime,
		BlockedRouteTypes:     blocked,
		WalkSpeedKmh:          s.WalkSpeedKmh,
	}
}

// TripResponse model info
//
//	@Description	satu alternatif perjalanan, terdiri dari leg jalan kaki dan leg transportasi umum
type TripResponse struct {
	Legs                 []ptrouter.Leg `json:"legs"`
	DepartureTime        time.Time      `json:"departure_time"`
	ArrivalTime          time.Time      `json:"arrival_time"`
	FirstPtDepartureTime *time.Time     `json:"first_pt_departure_time,omitempty"`
	DurationSeconds      float64        `json:"duration_seconds"`
	WalkTimeSeconds      float64        `json:"walk_time_seconds"`
	Transfers            int            `json:"transfers"`
	Impossible           bool           `json:"impossible"`
}

// RouteResponse model info
//
//	@Description	response body untuk rute transportasi umum
type RouteResponse struct {
	Trips        []TripResponse `json:"trips"`
	VisitedNodes int            `json:"visited_nodes"`
	NoPathReason string         `json:"no_path_reason,omitempty"`
}

func RenderRouteResponse(resp ptrouter.Response) *RouteResponse {
	trips := make([]TripResponse, 0, len(resp.Trips))
	for _, t := range resp.Trips {
		trips = append(trips, TripResponse{
			Legs:                 t.Legs,
			DepartureTime:        t.DepartureTime,
			ArrivalTime:          t.ArrivalTime,
			FirstPtDepartureTime: t.FirstPtDepartureTime,
			DurationSeconds:      t.Duration().Seconds(),
			WalkTimeSeconds:      t.WalkTime.Seconds(),
			Transfers:            t.NumTransfers,
			Impossible:           t.Impossible,
		})
	}
	return &RouteResponse{
		Trips:        trips,
		VisitedNodes: resp.VisitedNodes,
		NoPathReason: resp.NoPathReason,
	}
}

// Route
//
//	@Summary		rute transportasi umum multimodal (jalan kaki + transportasi umum) pakai multi criteria label setting
//	@Description	rute transportasi umum multimodal dari titik asal ke titik tujuan. Hasilnya pareto optimal terhadap waktu sampai, jumlah transfer dan waktu jalan kaki. Delay realtime GTFS-RT ikut diperhitungkan.
//	@Tags			pt
//	@Param			body	body	RouteRequest	true	"request body rute transportasi umum"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/pt/route [post]
//	@Success		200	{object}	RouteResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *PtHandler) Route(w http.ResponseWriter, r *http.Request) {
	h.route(w, r, h.svc.Route)
}

// RouteTripBased
//
//	@Summary		rute transportasi umum pakai trip based routing
//	@Description	rute transportasi umum pakai trip based routing di atas jadwal statis. Hanya untuk query waktu berangkat (arrive_by tidak didukung).
//	@Tags			pt
//	@Param			body	body	RouteRequest	true	"request body rute transportasi umum"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/pt/route-trip-based [post]
//	@Success		200	{object}	RouteResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		503	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *PtHandler) RouteTripBased(w http.ResponseWriter, r *http.Request) {
	h.route(w, r, h.svc.RouteTripBased)
}

func (h *PtHandler) route(w http.ResponseWriter, r *http.Request,
	routeFunc func(context.Context, ptrouter.Request) (ptrouter.Response, error)) {
	data := &RouteRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if err := validateStruct(*data); err != nil {
		render.Render(w, r, err)
		return
	}

	resp, err := routeFunc(r.Context(), data.toPtRequest())
	if err != nil {
		render.Render(w, r, RenderError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderRouteResponse(resp))
}

// NearestStationsRequest model info
//
//	@Description	query parameter untuk mencari halte/stasiun terdekat
type NearestStationsRequest struct {
	Lat      float64 `validate:"required,lt=90,gt=-90"`
	Lon      float64 `validate:"required,lt=180,gt=-180"`
	RadiusKm float64 `validate:"gte=0,lte=20"`
	K        int     `validate:"gt=0,lte=100"`
}

// NearestStationsResponse model info
//
//	@Description	response body halte/stasiun terdekat, urut dari yang paling dekat
type NearestStationsResponse struct {
	Stations []snap.Station `json:"stations"`
}

// NearestStations
//
//	@Summary		halte/stasiun terdekat dari sebuah titik
//	@Description	k halte/stasiun terdekat dari sebuah titik, dicari di r-tree. Kalau radius diisi, hanya halte dalam radius (km) tersebut.
//	@Tags			pt
//	@Param			lat		query	number	true	"latitude"
//	@Param			lon		query	number	true	"longitude"
//	@Param			radius	query	number	false	"radius dalam km"
//	@Param			k		query	int		false	"jumlah halte maksimal, default 5"
//	@Produce		application/json
//	@Router			/pt/stations/nearest [get]
//	@Success		200	{object}	NearestStationsResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
func (h *PtHandler) NearestStations(w http.ResponseWriter, r *http.Request) {
	data, err := parseNearestStationsRequest(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if err := validateStruct(data); err != nil {
		render.Render(w, r, err)
		return
	}

	stations, err := h.svc.NearestStations(r.Context(), data.Lat, data.Lon, data.RadiusKm, data.K)
	if err != nil {
		render.Render(w, r, RenderError(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &NearestStationsResponse{Stations: stations})
}

func parseNearestStationsRequest(r *http.Request) (NearestStationsRequest, error) {
	q := r.URL.Query()
	data := NearestStationsRequest{K: 5}
	var err error
	if data.Lat, err = strconv.ParseFloat(q.Get("lat"), 64); err != nil {
		return data, fmt.Errorf("invalid lat %q", q.Get("lat"))
	}
	if data.Lon, err = strconv.ParseFloat(q.Get("lon"), 64); err != nil {
		return data, fmt.Errorf("invalid lon %q", q.Get("lon"))
	}
	if v := q.Get("radius"); v != "" {
		if data.RadiusKm, err = strconv.ParseFloat(v, 64); err != nil {
			return data, fmt.Errorf("invalid radius %q", v)
		}
	}
	if v := q.Get("k"); v != "" {
		if data.K, err = strconv.Atoi(v); err != nil {
			return data, fmt.Errorf("invalid k %q", v)
		}
	}
	return data, nil
}

// RealtimeResponse model info
//
//	@Description	snapshot realtime yang sedang dipakai untuk routing
type RealtimeResponse struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	AdditionalEdges int       `json:"additional_edges"`
}

func RenderRealtimeResponse(s service.RealtimeSnapshot) *RealtimeResponse {
	return &RealtimeResponse{ID: s.ID, Timestamp: s.Timestamp, AdditionalEdges: s.AdditionalEdges}
}

// UpdateRealtime
//
//	@Summary		upload GTFS-RT trip updates sebuah feed
//	@Description	body adalah FeedMessage GTFS-RT (protobuf). Pesan ini menggantikan pesan sebelumnya dari feed yang sama, lalu snapshot realtime dibangun ulang.
//	@Tags			pt
//	@Param			feedID	path	string	true	"id feed GTFS"
//	@Accept			application/x-protobuf
//	@Produce		application/json
//	@Router			/pt/realtime/{feedID} [post]
//	@Success		202	{object}	RealtimeResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		503	{object}	ErrResponse
func (h *PtHandler) UpdateRealtime(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "feedID")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFeedMessageBytes))
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	snapshot, err := h.svc.UpdateRealtime(r.Context(), feedID, body)
	if err != nil {
		render.Render(w, r, RenderError(err))
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, RenderRealtimeResponse(snapshot))
}

// CurrentRealtime
//
//	@Summary		snapshot realtime yang sedang dipakai
//	@Tags			pt
//	@Produce		application/json
//	@Router			/pt/realtime [get]
//	@Success		200	{object}	RealtimeResponse
//	@Failure		503	{object}	ErrResponse
func (h *PtHandler) CurrentRealtime(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.CurrentRealtime(r.Context())
	if err != nil {
		render.Render(w, r, RenderError(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderRealtimeResponse(snapshot))
}

func validateStruct(data interface{}) render.Renderer {
	validate := validator.New()
	if err := validate.Struct(data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		return ErrValidation(err, vv)
	}
	return nil
}
