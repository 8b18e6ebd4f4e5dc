package libsweep

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vtacosim/detectsweep/simnode"
	"gopkg.in/inconshreveable/log15.v2"
)

// ExperimentList is served by the /experiments endpoint.
type ExperimentList struct {
	Size        int      `json:"size"`
	Experiments []string `json:"experiments"`
}

type apiError struct {
	Error string `json:"error"`
}

// NewAPI creates handlers for the read-only experiment API. The collection
// must not be modified while the handler is in use.
func NewAPI(c Collection, env simnode.Env) http.Handler {
	if env == nil {
		env = simnode.DefaultEnv()
	}
	api := &sweepAPI{coll: c, env: env}
	router := mux.NewRouter()
	api.registerRoutes(router)
	return router
}

type sweepAPI struct {
	coll Collection
	env  simnode.Env
}

func (api *sweepAPI) registerRoutes(router *mux.Router) {
	router.HandleFunc("/experiments", api.listExperiments).Methods("GET")
	router.HandleFunc("/experiments/{exp}", api.getExperiment).Methods("GET")
	router.HandleFunc("/experiments/{exp}/hosts/{host}/script", api.getHostScript).Methods("GET")
	router.HandleFunc("/experiments/{exp}/hosts/{host}/files/{file}", api.getHostFile).Methods("GET")
	router.HandleFunc("/experiments/{exp}/devices/{dev}/cmd", api.getDeviceCmd).Methods("GET")
}

func (api *sweepAPI) listExperiments(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, ExperimentList{Size: len(api.coll), Experiments: api.coll.Names()})
}

func (api *sweepAPI) getExperiment(w http.ResponseWriter, r *http.Request) {
	e, err := api.requestExperiment(r)
	if err != nil {
		serveError(w, err, http.StatusNotFound)
		return
	}
	serveJSON(w, NewManifest(e, api.env))
}

func (api *sweepAPI) getHostScript(w http.ResponseWriter, r *http.Request) {
	h, err := api.requestHost(r)
	if err != nil {
		serveError(w, err, http.StatusNotFound)
		return
	}
	serveText(w, h.Node.RunScript())
}

func (api *sweepAPI) getHostFile(w http.ResponseWriter, r *http.Request) {
	h, err := api.requestHost(r)
	if err != nil {
		serveError(w, err, http.StatusNotFound)
		return
	}
	name := mux.Vars(r)["file"]
	data, ok := h.Files[name]
	if !ok {
		serveError(w, fmt.Errorf("host %s has no file %q", h.Name, name), http.StatusNotFound)
		return
	}
	w.Header().Set("content-type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (api *sweepAPI) getDeviceCmd(w http.ResponseWriter, r *http.Request) {
	e, err := api.requestExperiment(r)
	if err != nil {
		serveError(w, err, http.StatusNotFound)
		return
	}
	name := mux.Vars(r)["dev"]
	dev, ok := e.PCIDev(name)
	if !ok {
		serveError(w, fmt.Errorf("experiment %s has no device %q", e.Name, name), http.StatusNotFound)
		return
	}
	serveText(w, dev.RunCmd(api.env)+"\n")
}

// requestExperiment returns the experiment named in the request path.
func (api *sweepAPI) requestExperiment(r *http.Request) (*Experiment, error) {
	name := mux.Vars(r)["exp"]
	e, ok := api.coll.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown experiment %q", name)
	}
	return e, nil
}

// requestHost returns the host named in the request path.
func (api *sweepAPI) requestHost(r *http.Request) (*Host, error) {
	e, err := api.requestExperiment(r)
	if err != nil {
		return nil, err
	}
	name := mux.Vars(r)["host"]
	h, ok := e.Host(name)
	if !ok {
		return nil, fmt.Errorf("experiment %s has no host %q", e.Name, name)
	}
	return h, nil
}

func serveJSON(w http.ResponseWriter, value interface{}) {
	resp, err := json.Marshal(value)
	if err != nil {
		log15.Error("API: internal error while encoding response", "error", err)
		serveError(w, errors.New("internal error"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

func serveText(w http.ResponseWriter, text string) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

func serveError(w http.ResponseWriter, err error, status int) {
	log15.Debug("API: request failed", "status", status, "error", err)
	resp, _ := json.Marshal(&apiError{Error: err.Error()})
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	w.Write(resp)
}
