package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/luca-patrignani/resonance/application"
	"github.com/luca-patrignani/resonance/consensus"
	"github.com/luca-patrignani/resonance/metrics"
)

// statusRouter exposes read-only views of a running node.
func statusRouter(node *application.Orchestrator, col *metrics.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", col.Handler())
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, node.Stats())
	})
	r.Get("/blocks", func(w http.ResponseWriter, req *http.Request) {
		limit := 10
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		respond(w, http.StatusOK, node.RecentBlocks(limit))
	})
	r.Get("/blocks/{height}", func(w http.ResponseWriter, req *http.Request) {
		h, err := strconv.ParseUint(chi.URLParam(req, "height"), 10, 64)
		if err != nil {
			http.Error(w, "invalid height", http.StatusBadRequest)
			return
		}
		b, err := node.Block(h)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		respond(w, http.StatusOK, b)
	})
	r.Get("/witnesses", func(w http.ResponseWriter, _ *http.Request) {
		active := node.ActiveWitnesses()
		out := make([]witnessView, len(active))
		for i, wt := range active {
			out[i] = newWitnessView(wt)
		}
		respond(w, http.StatusOK, out)
	})
	r.Get("/witnesses/{address}", func(w http.ResponseWriter, req *http.Request) {
		wt, ok := node.Witness(chi.URLParam(req, "address"))
		if !ok {
			http.Error(w, "unknown witness", http.StatusNotFound)
			return
		}
		respond(w, http.StatusOK, newWitnessView(wt))
	})
	r.Get("/query", func(w http.ResponseWriter, req *http.Request) {
		threshold := 0.0
		if v := req.URL.Query().Get("threshold"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				http.Error(w, "invalid threshold", http.StatusBadRequest)
				return
			}
			threshold = f
		}
		respond(w, http.StatusOK, node.QueryContent(req.URL.Query().Get("q"), threshold))
	})
	return r
}

type witnessView struct {
	Address       string  `json:"address"`
	Stake         uint64  `json:"stake"`
	Participation float64 `json:"participation"`
}

func newWitnessView(w *consensus.Witness) witnessView {
	return witnessView{Address: w.Address(), Stake: w.Stake, Participation: w.Participation}
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, v)
}
