package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/internal/metrics"
	"github.com/coreroom/stateres/internal/tracing"
	"github.com/coreroom/stateres/internal/util"
	"github.com/coreroom/stateres/rules"
	"github.com/coreroom/stateres/spec"
	"github.com/coreroom/stateres/stateres"
)

// resolveRequest is the /resolve debug endpoint's request body: a room
// version and the set of forked state maps to merge, each expressed as a
// map from state key to the id of an event the caller has already loaded
// into store.
type resolveRequest struct {
	RoomID      spec.RoomID        `json:"room_id"`
	RoomVersion spec.RoomVersion   `json:"room_version"`
	Forks       []map[string]string `json:"forks"` // type + "\x00" + state_key -> event_id
}

type resolveResponse struct {
	State map[string]string `json:"state"`
}

// NewRouter builds the debug HTTP surface: a hand-routed POST /resolve
// endpoint plus a GET /healthz status endpoint. This is explicitly out of scope as a general-purpose
// federation API (spec.md §1 non-goals); it exists only so an operator can
// drive a resolution by hand against events already loaded into store.
func NewRouter(store stateres.EventStore) *mux.Router {
	router := mux.NewRouter().SkipClean(true).UseEncodedPath()
	router.HandleFunc("/resolve", resolveHandler(store)).Methods(http.MethodPost)
	router.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	return router
}

func resolveHandler(store stateres.EventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := util.WithRoomID(req.Context(), "")
		span, ctx := tracing.StartSpan(ctx, "stateresd.resolve")

		var body resolveRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			tracing.FinishWithError(span, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log := util.Logger(util.WithRoomID(ctx, string(body.RoomID)))

		r, err := rules.RulesForVersion(body.RoomVersion)
		if err != nil {
			tracing.FinishWithError(span, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		forks := make([]event.StateMap, 0, len(body.Forks))
		for _, fork := range body.Forks {
			forks = append(forks, decodeStateMap(fork))
		}

		resolved, err := stateres.Resolve(body.RoomID, r, forks, store)
		if err != nil {
			log.WithError(err).Error("resolution failed")
			tracing.FinishWithError(span, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		tracing.FinishWithError(span, nil)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resolveResponse{State: encodeStateMap(resolved)})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":                true,
		"in_flight_resolutions": metrics.InFlightResolutions(),
	})
}

const stateKeySeparator = "\x00"

func decodeStateMap(fork map[string]string) event.StateMap {
	sm := event.StateMap{}
	for k, id := range fork {
		eventType, stateKey := splitStateKey(k)
		sm[event.StateKeyTuple{EventType: eventType, StateKey: stateKey}] = spec.EventID(id)
	}
	return sm
}

func encodeStateMap(sm event.StateMap) map[string]string {
	out := make(map[string]string, len(sm))
	for k, id := range sm {
		out[k.EventType+stateKeySeparator+k.StateKey] = string(id)
	}
	return out
}

func splitStateKey(s string) (eventType, stateKey string) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}
