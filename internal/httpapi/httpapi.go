// Package httpapi exposes the node's control command set over HTTP
// using gorilla/mux, grounded in the teacher's internal/api/api.go
// router, generalized from its two routes (/chain, /tx) to the full
// command table of spec §6. The peer hub's own /ws endpoint is wired
// up separately, on the P2P listener, not this router.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/duskline/duskchain/internal/errs"
	"github.com/duskline/duskchain/internal/node"
	"github.com/duskline/duskchain/internal/txmodel"
)

// API binds a Node to the HTTP control-surface routes.
type API struct {
	node *node.Node
	log  *slog.Logger
}

// New constructs the control-surface router's handler set.
func New(n *node.Node, log *slog.Logger) *API {
	return &API{node: n, log: log}
}

// Router builds the gorilla/mux router every route is registered on.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/chain", a.getChain).Methods(http.MethodGet)
	r.HandleFunc("/block/{hash}", a.getBlockByHash).Methods(http.MethodGet)
	r.HandleFunc("/tx/{id}", a.getTxByID).Methods(http.MethodGet)
	r.HandleFunc("/unspent", a.getUnspent).Methods(http.MethodGet)
	r.HandleFunc("/unspent/mine", a.getMyUnspent).Methods(http.MethodGet)
	r.HandleFunc("/balance", a.getBalance).Methods(http.MethodGet)
	r.HandleFunc("/address", a.getAddress).Methods(http.MethodGet)
	r.HandleFunc("/pool", a.getPool).Methods(http.MethodGet)
	r.HandleFunc("/peers", a.getPeers).Methods(http.MethodGet)

	r.HandleFunc("/mine", a.mine).Methods(http.MethodPost)
	r.HandleFunc("/mine/raw", a.mineRaw).Methods(http.MethodPost)
	r.HandleFunc("/mine/tx", a.mineTx).Methods(http.MethodPost)
	r.HandleFunc("/send", a.sendTx).Methods(http.MethodPost)
	r.HandleFunc("/peers", a.addPeer).Methods(http.MethodPost)
	r.HandleFunc("/stop", a.stop).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *API) getChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.node.GetChain())
}

func (a *API) getBlockByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	b, ok := a.node.GetBlockByHash(hash)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) getTxByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tx, ok := a.node.GetTxByID(id)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (a *API) getUnspent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.node.GetUnspent())
}

func (a *API) getMyUnspent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.node.GetMyUnspent())
}

func (a *API) getBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": a.node.GetBalance()})
}

func (a *API) getAddress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"address": a.node.GetAddress()})
}

func (a *API) getPool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.node.GetPool())
}

func (a *API) getPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.node.GetPeers())
}

// mine has its own, table-mandated status mapping: any failure is a
// 500, regardless of which taxonomy error caused it — the one place
// this implementation departs from errs.StatusCode's generic mapping.
func (a *API) mine(w http.ResponseWriter, r *http.Request) {
	block, err := a.node.Mine()
	if err != nil {
		a.log.Warn("mine failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type mineRawRequest struct {
	Transactions []txmodel.Transaction `json:"transactions"`
}

func (a *API) mineRaw(w http.ResponseWriter, r *http.Request) {
	var req mineRawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errs.ErrMalformedInput)
		return
	}
	block, err := a.node.MineRaw(req.Transactions)
	if err != nil {
		writeError(w, errs.StatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type spendRequest struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

func (a *API) mineTx(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errs.ErrMalformedInput)
		return
	}
	if _, err := a.node.SendTx(req.Address, req.Amount); err != nil {
		writeError(w, errs.StatusCode(err), err)
		return
	}
	block, err := a.node.Mine()
	if err != nil {
		a.log.Warn("mine failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (a *API) sendTx(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errs.ErrMalformedInput)
		return
	}
	tx, err := a.node.SendTx(req.Address, req.Amount)
	if err != nil {
		writeError(w, errs.StatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type addPeerRequest struct {
	Peer string `json:"peer"`
}

func (a *API) addPeer(w http.ResponseWriter, r *http.Request) {
	var req addPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, errs.ErrPeerTransport)
		return
	}
	if err := a.node.AddPeer(req.Peer); err != nil {
		writeError(w, errs.StatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) stop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
	a.node.Stop()
}
