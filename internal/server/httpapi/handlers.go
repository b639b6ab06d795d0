package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/alertkeeper/internal/netx"
	"github.com/dmitrijs2005/alertkeeper/internal/server/services"
	"github.com/gorilla/mux"
)

var allowedListParams = map[string]struct{}{
	"user":     {},
	"ioc_type": {},
	"ioc_data": {},
	"days":     {},
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"title":   s.opts.Title,
		"version": s.opts.Version,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "Missing username or password")
		return
	}

	if _, err := s.users.Register(r.Context(), req.Username, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "user registered", "username", req.Username, "ip", netx.ClientIP(r))
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok || username == "" || password == "" {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "Could not verify")
		return
	}

	token, err := s.users.Login(r.Context(), username, password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	for name := range params {
		if _, ok := allowedListParams[name]; !ok {
			s.logger.Warn(r.Context(), "invalid query parameter", "param", name, "ip", netx.ClientIP(r))
			writeError(w, http.StatusBadRequest, kindValidation, fmt.Sprintf("Invalid parameter: %s", name))
			return
		}
	}

	q := services.ListQuery{
		User:    params.Get("user"),
		IOCType: params.Get("ioc_type"),
		IOCData: params.Get("ioc_data"),
	}
	if raw := params.Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, kindValidation, "days must be an integer")
			return
		}
		q.Days = &days
	}

	found, err := s.alerts.List(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "alerts listed",
		"user", q.User, "ioc_type", q.IOCType, "ioc_data", q.IOCData, "days", params.Get("days"),
		"count", len(found), "requested_by", usernameFrom(r.Context()))

	if len(found) == 0 {
		writeError(w, http.StatusNotFound, kindNotFound, "No alerts found for the specified criteria")
		return
	}

	out := make([]alertResponse, 0, len(found))
	for _, a := range found {
		out = append(out, toAlertResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, kindNotFound, "Alert not found")
		return
	}

	alert, err := s.alerts.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

func (s *Server) createAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := decodeAlert(r.Body)
	if err != nil {
		s.logger.Warn(r.Context(), "invalid alert", "reason", err.Error(), "ip", netx.ClientIP(r))
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	id, err := s.alerts.Create(r.Context(), alert)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "alert created", "id", id, "source", alert.Source,
		"iocs", len(alert.IOCs), "requested_by", usernameFrom(r.Context()))
	writeJSON(w, http.StatusCreated, createAlertResponse{ID: id, Status: "Alert received successfully"})
}

// fail writes the client-facing error for err and logs the ones that are
// not the client's fault.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "error", err.Error(), "path", r.URL.Path)
	}
	writeError(w, status, kind, msg)
}
