package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldsurvey/internal/model"
	"fieldsurvey/internal/service"
	"fieldsurvey/internal/transport/rest/middleware"
)

// ResponseHandler handles response submission and listing
type ResponseHandler struct {
	responseSvc *service.ResponseService
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responseSvc *service.ResponseService) *ResponseHandler {
	return &ResponseHandler{responseSvc: responseSvc}
}

// submitBody is the POST /responses payload. Scalars sent by older clients
// may arrive as strings or numbers.
type submitBody struct {
	SurveyID    interface{}         `json:"surveyId"`
	UserName    string              `json:"userName"`
	UserPhone   string              `json:"userPhone"`
	Location    *model.Location     `json:"location"`
	Latitude    interface{}         `json:"latitude"`
	Longitude   interface{}         `json:"longitude"`
	SubmittedAt *time.Time          `json:"submittedAt"`
	Answers     []service.RawAnswer `json:"answers"`

	Parliament      interface{} `json:"parliament"`
	Assembly        interface{} `json:"assembly"`
	Municipality    interface{} `json:"municipality"`
	Mandal          interface{} `json:"mandal"`
	WardNum         interface{} `json:"ward_num"`
	Ward            interface{} `json:"ward"`
	RespondentName  interface{} `json:"respondentName"`
	RespondentPhone interface{} `json:"respondentPhone"`
	VillageOrStreet interface{} `json:"village_or_street"`
}

func (b *submitBody) location() *model.Location {
	if !b.Location.IsZero() {
		return b.Location
	}
	lat, okLat := toFloat(b.Latitude)
	lng, okLng := toFloat(b.Longitude)
	if !okLat || !okLng {
		return nil
	}
	if loc := (&model.Location{Latitude: lat, Longitude: lng}); !loc.IsZero() {
		return loc
	}
	return nil
}

func (b *submitBody) flat() service.FlatFields {
	return service.FlatFields{
		Parliament:      service.Stringify(b.Parliament),
		Assembly:        service.Stringify(b.Assembly),
		Municipality:    service.Stringify(b.Municipality),
		Mandal:          service.Stringify(b.Mandal),
		WardNum:         service.Stringify(b.WardNum),
		Ward:            service.Stringify(b.Ward),
		RespondentName:  service.Stringify(b.RespondentName),
		RespondentPhone: service.Stringify(b.RespondentPhone),
		VillageOrStreet: service.Stringify(b.VillageOrStreet),
	}
}

// Submit handles POST /responses
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	result, err := h.responseSvc.Submit(r.Context(), service.SubmitRequest{
		SurveyID:    service.Stringify(body.SurveyID),
		UserName:    body.UserName,
		UserPhone:   body.UserPhone,
		Location:    body.location(),
		SubmittedAt: body.SubmittedAt,
		Answers:     body.Answers,
		Flat:        body.flat(),
		UserAgent:   r.UserAgent(),
		IPAddress:   middleware.RealIP(r),
		User:        middleware.GetUser(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if result.Duplicate {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"duplicate": true,
			"message":   "Duplicate submission detected",
			"data":      result.Response,
		})
		return
	}
	writeData(w, http.StatusCreated, result.Response)
}

// List handles GET /responses
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "page must be a number")
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "limit must be a number")
		return
	}

	result, err := h.responseSvc.List(r.Context(), service.ListQuery{
		SurveyID: q.Get("surveyId"),
		UserName: q.Get("userName"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	data := result.Data
	if data == nil {
		data = []*model.Response{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       data,
		"pagination": result.Pagination,
	})
}

func optionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
