package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/alertkeeper/internal/server/models"
	"github.com/go-playground/validator/v10"
)

const (
	maxBodyBytes   = 1 << 20
	iocsShapeError = "iocs must be a list of objects with 'type' and 'data'"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// requiredAlertFields lists the keys of a POST /alert body in the order
// missing ones are reported in.
var requiredAlertFields = []string{"source", "user", "description", "iocs", "date"}

// Pointer fields tell a null value apart from an empty string. Items of IOCs
// are validated on their own once every top-level field is known present.
type createAlertRequest struct {
	Source      *string      `json:"source" validate:"required"`
	User        *string      `json:"user" validate:"required"`
	Description *string      `json:"description" validate:"required"`
	IOCs        []iocRequest `json:"iocs" validate:"required"`
	Date        *string      `json:"date" validate:"required"`
}

type iocRequest struct {
	Type *string `json:"type" validate:"required"`
	Data *string `json:"data" validate:"required"`
}

type iocResponse struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type alertResponse struct {
	ID          int64         `json:"id"`
	Source      string        `json:"source"`
	User        string        `json:"user"`
	Description string        `json:"description"`
	Date        string        `json:"date"`
	IOCs        []iocResponse `json:"iocs"`
}

type createAlertResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// decodeAlert reads and checks a POST /alert body. Missing fields are
// reported before the shape of iocs is looked at. The returned error message
// is meant for the client.
func decodeAlert(r io.Reader) (*models.Alert, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return nil, errors.New("invalid JSON body")
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	for _, name := range requiredAlertFields {
		if _, ok := present[name]; !ok {
			return nil, fmt.Errorf("missing %s", name)
		}
	}

	var req createAlertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "iocs" || strings.HasPrefix(typeErr.Field, "iocs.") {
				return nil, errors.New(iocsShapeError)
			}
			if typeErr.Field != "" {
				return nil, fmt.Errorf("%s must be a string", typeErr.Field)
			}
		}
		return nil, errors.New("invalid JSON body")
	}

	// A null value passes the presence check and is caught here.
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if verrs[0].Field() == "iocs" {
				return nil, errors.New(iocsShapeError)
			}
			return nil, fmt.Errorf("missing %s", verrs[0].Field())
		}
		return nil, errors.New("invalid alert")
	}
	for _, ioc := range req.IOCs {
		if err := validate.Struct(ioc); err != nil {
			return nil, errors.New(iocsShapeError)
		}
	}

	alert := &models.Alert{
		Source:      *req.Source,
		User:        *req.User,
		Description: *req.Description,
		Timestamp:   *req.Date,
		IOCs:        make([]models.IOC, 0, len(req.IOCs)),
	}
	for _, ioc := range req.IOCs {
		alert.IOCs = append(alert.IOCs, models.IOC{Type: *ioc.Type, Data: *ioc.Data})
	}
	return alert, nil
}

func toAlertResponse(a *models.Alert) alertResponse {
	out := alertResponse{
		ID:          a.ID,
		Source:      a.Source,
		User:        a.User,
		Description: a.Description,
		Date:        a.Timestamp,
		IOCs:        make([]iocResponse, 0, len(a.IOCs)),
	}
	for _, ioc := range a.IOCs {
		out.IOCs = append(out.IOCs, iocResponse{Type: ioc.Type, Data: ioc.Data})
	}
	return out
}
