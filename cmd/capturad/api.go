package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"goofish-backend/lib/goofish"
	"goofish-backend/lib/kvstore"
	"goofish-backend/lib/schema"
	"goofish-backend/services/bitable"
	"goofish-backend/services/capture"
	"goofish-backend/services/tablesync"
)

// Api exposes the capture store over plain HTTP JSON. The browser side
// posts intercepted search responses to /capture verbatim; everything
// else is operator surface.
type Api struct {
	store    *capture.Store
	configKV kvstore.Namespace
	sync     *tablesync.Service
}

func (a Api) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /capture", a.handleCapture)
	mux.HandleFunc("GET /statistics", a.handleStatistics)
	mux.HandleFunc("POST /reset", a.handleReset)

	mux.HandleFunc("GET /keyword", a.handleGetKeyword)
	mux.HandleFunc("POST /keyword", a.handleSetKeyword)
	mux.HandleFunc("GET /filters", a.handleGetFilters)
	mux.HandleFunc("POST /filters", a.handleSetFilters)

	mux.HandleFunc("GET /export/products.csv", a.handleExportProducts)
	mux.HandleFunc("GET /export/sellers.csv", a.handleExportSellers)
	mux.HandleFunc("GET /export/requests.csv", a.handleExportRequests)

	mux.HandleFunc("POST /sync", a.handleSync)
	mux.HandleFunc("GET /feishu/config", a.handleGetFeishuConfig)
	mux.HandleFunc("POST /feishu/config", a.handleSetFeishuConfig)
	mux.HandleFunc("POST /feishu/test", a.handleTestFeishu)
}

func writeJson(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		slog.Warn("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJson(w, status, map[string]string{"error": err.Error()})
}

func writeCsv(w http.ResponseWriter, filename, body string, err error) {
	if errors.Is(err, schema.ErrNoRecords) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	// BOM so spreadsheet apps pick up utf-8
	w.Write([]byte("\xef\xbb\xbf"))
	w.Write([]byte(body))
}

func (a Api) handleCapture(w http.ResponseWriter, r *http.Request) {
	var env goofish.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	added, err := a.store.Record(r.Context(), env)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]any{
		"added":      added,
		"statistics": a.store.Stats(),
	})
}

func (a Api) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, a.store.Stats())
}

func (a Api) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a Api) handleGetKeyword(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"keyword": a.store.Keyword()})
}

func (a Api) handleSetKeyword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Keyword string `json:"keyword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.store.SetKeyword(r.Context(), body.Keyword); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a Api) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, a.store.Filter())
}

func (a Api) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	var filter capture.FilterConfig
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.store.SetFilter(r.Context(), filter); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a Api) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	body, err := schema.ProductCSV(a.store.Snapshot())
	writeCsv(w, "products.csv", body, err)
}

func (a Api) handleExportSellers(w http.ResponseWriter, r *http.Request) {
	body, err := schema.SellerCSV(a.store.Snapshot())
	writeCsv(w, "sellers.csv", body, err)
}

func (a Api) handleExportRequests(w http.ResponseWriter, r *http.Request) {
	body, err := a.store.RequestLogCSV()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeCsv(w, "requests.csv", body, nil)
}

func (a Api) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := a.sync.Sync(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, result)
}

func (a Api) handleGetFeishuConfig(w http.ResponseWriter, r *http.Request) {
	config, err := bitable.LoadConfig(a.configKV)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// the secret stays server-side
	config.AppSecret = ""
	writeJson(w, http.StatusOK, config)
}

func (a Api) handleSetFeishuConfig(w http.ResponseWriter, r *http.Request) {
	var config bitable.Config
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if config.AppSecret == "" {
		// keep the stored secret when the client omits it
		stored, err := bitable.LoadConfig(a.configKV)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		config.AppSecret = stored.AppSecret
	}
	if err := bitable.SaveConfig(a.configKV, config); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a Api) handleTestFeishu(w http.ResponseWriter, r *http.Request) {
	config, err := bitable.LoadConfig(a.configKV)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := bitable.NewClient(config).TestConnection(r.Context()); err != nil {
		writeJson(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"ok": true})
}
