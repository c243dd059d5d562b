package health

import (
	"encoding/json"
	"net/http"
	"slices"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadinessReporter is implemented by background consumers such as the Kafka
// job worker.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// AlwaysReady is the reporter of a process without background consumers.
type AlwaysReady struct{}

func (AlwaysReady) Readiness() (bool, []int32) { return true, nil }

// Readiness answers 200 once every reporter is ready and 503 otherwise. The
// body lists the union of assigned partitions in ascending order.
func Readiness(rrs ...ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status     string  `json:"status"`
			Partitions []int32 `json:"partitions,omitempty"`
		}
		ready := true
		var parts []int32
		for _, rr := range rrs {
			ok, p := rr.Readiness()
			ready = ready && ok
			parts = append(parts, p...)
		}
		out := resp{Status: "not_ready"}
		if ready {
			slices.Sort(parts)
			out.Status = "ready"
			out.Partitions = slices.Compact(parts)
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
