package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/pkg/audit/request"
	analysisSvc "github.com/solguard/solguard-api/pkg/audit/services/analysis"
	contractSvc "github.com/solguard/solguard-api/pkg/audit/services/contract"
	reportSvc "github.com/solguard/solguard-api/pkg/audit/services/report"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// handlerFunc runs inside an authorized request context; the returned
// value is wrapped into the success envelope.
type handlerFunc func(rc *request.AuthorizedContext, w http.ResponseWriter, r *http.Request) (interface{}, error)

func (a *App) registerHandlers(r *mux.Router) {
	contracts := contractSvc.BasicService{Stores: a.stores}

	r.HandleFunc("/v1/contracts", a.wrap("create contract",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			var payload contractSvc.CreatePayload
			if err := decodeBody(req, &payload); err != nil {
				return nil, err
			}
			return contracts.Create(rc, &payload)
		})).Methods(http.MethodPost)

	r.HandleFunc("/v1/contracts", a.wrap("list contracts",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			return contracts.List(rc, offset, limit)
		})).Methods(http.MethodGet)

	r.HandleFunc("/v1/contracts/{contractid}", a.wrap("get contract",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			id, err := contractID(req)
			if err != nil {
				return nil, err
			}
			return contracts.Get(rc, id)
		})).Methods(http.MethodGet)

	r.HandleFunc("/v1/contracts/{contractid}/analyzes", a.wrap("start analysis",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			id, err := contractID(req)
			if err != nil {
				return nil, err
			}
			var payload analysisSvc.StartPayload
			if err = decodeBody(req, &payload); err != nil {
				return nil, err
			}
			return a.services.analysis.Start(rc, id, &payload)
		})).Methods(http.MethodPost)

	r.HandleFunc("/v1/contracts/{contractid}/analyzes", a.wrap("get analysis status",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			id, err := contractID(req)
			if err != nil {
				return nil, err
			}
			return a.services.analysis.GetStatus(rc, id)
		})).Methods(http.MethodGet)

	r.HandleFunc("/v1/contracts/{contractid}/reports", a.wrap("generate report",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			id, err := contractID(req)
			if err != nil {
				return nil, err
			}
			var payload reportSvc.GeneratePayload
			if err = decodeBody(req, &payload); err != nil {
				return nil, err
			}
			return a.services.report.Generate(rc, id, &payload)
		})).Methods(http.MethodPost)

	r.HandleFunc("/v1/contracts/{contractid}/reports", a.wrap("get report metadata",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			id, err := contractID(req)
			if err != nil {
				return nil, err
			}
			return a.services.report.GetMetadata(rc, id)
		})).Methods(http.MethodGet)

	r.HandleFunc("/v1/contracts/{contractid}/reports/{format}", a.wrap("download report",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			id, err := contractID(req)
			if err != nil {
				return nil, err
			}
			dl, err := a.services.report.Download(rc, id, mux.Vars(req)["format"])
			if err != nil {
				return nil, err
			}

			w.Header().Set("Content-Type", dl.ContentType)
			w.Header().Set("Content-Disposition", `attachment; filename="`+dl.Filename+`"`)
			_, _ = w.Write(dl.Content)
			return nil, nil
		})).Methods(http.MethodGet)

	r.HandleFunc("/v1/admin/queues/{queue}", a.wrap("get queue counts",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			return a.services.queueadmin.Counts(rc, mux.Vars(req)["queue"])
		})).Methods(http.MethodGet)

	r.HandleFunc("/v1/admin/queues/{queue}/jobs/{jobid}/wait", a.wrap("force-wait job",
		func(rc *request.AuthorizedContext, w http.ResponseWriter, req *http.Request) (interface{}, error) {
			vars := mux.Vars(req)
			return nil, a.services.queueadmin.ForceWait(rc, vars["queue"], vars["jobid"])
		})).Methods(http.MethodPost)
}

func (a *App) wrap(name string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, err := a.makeRequestContext(r)
		if err != nil {
			a.writeError(w, a.trackedLog, err)
			return
		}

		lctx := logutil.Context{"handler": name}
		rc.FillLogContext(lctx)
		rc.Log = logutil.WrapLogWithContext(a.trackedLog, lctx)

		data, err := h(rc, w, r)
		if err != nil {
			a.writeError(w, rc.Log, err)
			return
		}
		if data == nil {
			// the handler already wrote the response or there is no body
			if w.Header().Get("Content-Type") == "" {
				writeJSON(w, http.StatusOK, successResponse{Success: true})
			}
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true, Data: data})
	}
}

// makeRequestContext resolves the caller identity. Authentication
// itself happens upstream; the gateway passes the user id along.
func (a *App) makeRequestContext(r *http.Request) (*request.AuthorizedContext, error) {
	userIDStr := r.Header.Get("X-User-ID")
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.Wrap(apierrors.ErrValidation, "no valid X-User-ID header")
	}

	return &request.AuthorizedContext{
		BaseContext: request.BaseContext{
			Ctx:       r.Context(),
			Log:       a.trackedLog,
			Lctx:      logutil.Context{},
			StartedAt: time.Now(),
		},
		UserID: uint(userID),
	}, nil
}

func (a *App) writeError(w http.ResponseWriter, log logutil.Log, err error) {
	code := http.StatusInternalServerError
	switch errors.Cause(err) {
	case apierrors.ErrNotFound:
		code = http.StatusNotFound
	case apierrors.ErrValidation:
		code = http.StatusBadRequest
	}

	if code == http.StatusInternalServerError {
		log.Errorf("Request failed: %s", err)
	} else {
		log.Warnf("Request rejected: %s", err)
	}
	writeJSON(w, code, errorResponse{Success: false, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(apierrors.ErrValidation, err.Error())
	}
	return nil
}

func contractID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["contractid"], 10, 32)
	if err != nil {
		return 0, errors.Wrap(apierrors.ErrValidation, "bad contract id")
	}
	return uint(id), nil
}
