package router

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/h3-columnar/internal/cache/resultcache"
	"github.com/mohammed-shakir/h3-columnar/internal/core/arrowipc"
	"github.com/mohammed-shakir/h3-columnar/internal/core/config"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

const sfRes5 = 0x85283473fffffff

func newTestRouter(t *testing.T, cache *resultcache.Cache) http.Handler {
	t.Helper()
	cfg := config.Defaults()
	cfg.OpTimeout = 5 * time.Second
	return newTestRouterWith(t, cfg, cache)
}

func newTestRouterWith(t *testing.T, cfg config.Config, cache *resultcache.Cache) http.Handler {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	r := chi.NewRouter()
	r.Get("/v1/ops", ListOps())
	r.Post("/v1/ops/{op}", HandleOp(logger, cfg, h3array.New(), cache))
	return r
}

func cellsBody(t *testing.T, cells ...uint64) []byte {
	t.Helper()
	e := h3array.New()
	arr := e.NewUint64(cells, nil)
	defer arr.Release()
	rec := h3array.NewTable([]string{h3array.ColCell}, []arrow.Array{arr})
	defer rec.Release()
	b, err := arrowipc.Encode(rec, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func post(t *testing.T, h http.Handler, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", arrowipc.StreamContentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestListOps(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ops", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got []opInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var found bool
	for _, op := range got {
		if op.Name == "grid_disk" {
			found = true
			if len(op.Inputs) == 0 || op.Doc == "" {
				t.Fatalf("grid_disk listed without inputs or doc: %+v", op)
			}
		}
	}
	if !found {
		t.Fatalf("grid_disk missing from %d ops", len(got))
	}
}

func TestHandleOp_GridDisk(t *testing.T) {
	rr := post(t, newTestRouter(t, nil), "/v1/ops/grid_disk?k=1&flatten=true", cellsBody(t, sfRes5))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != arrowipc.StreamContentType {
		t.Fatalf("content type %q", ct)
	}
	out, err := arrowipc.Decode(rr.Body.Bytes(), memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	defer out.Release()
	if out.NumRows() != 7 {
		t.Fatalf("rows=%d want 7", out.NumRows())
	}
}

func TestHandleOp_CachesResult(t *testing.T) {
	cache := resultcache.New(resultcache.Config{LRUSize: 8, TTL: time.Minute}, nil, nil, nil)
	h := newTestRouter(t, cache)
	body := cellsBody(t, sfRes5)

	first := post(t, h, "/v1/ops/cells_area?unit=km2", body)
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "miss" {
		t.Fatalf("first call: status=%d x-cache=%q", first.Code, first.Header().Get("X-Cache"))
	}
	second := post(t, h, "/v1/ops/cells_area?unit=km2", body)
	if second.Header().Get("X-Cache") != resultcache.TierLRU {
		t.Fatalf("second call x-cache=%q, want %q", second.Header().Get("X-Cache"), resultcache.TierLRU)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("cached payload differs from computed payload")
	}
	other := post(t, h, "/v1/ops/cells_area?unit=m2", body)
	if other.Header().Get("X-Cache") != "miss" {
		t.Fatalf("different params must not share a cache entry")
	}
}

func TestHandleOp_CacheKeyEscapesParams(t *testing.T) {
	cache := resultcache.New(resultcache.Config{LRUSize: 8, TTL: time.Minute}, nil, nil, nil)
	h := newTestRouter(t, cache)
	body := cellsBody(t, sfRes5)

	split := post(t, h, "/v1/ops/grid_disk?a=x&flatten=true&k=2", body)
	if split.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", split.Code, split.Body.String())
	}
	// the same characters inside a single value: k and flatten keep their defaults
	packed := post(t, h, "/v1/ops/grid_disk?a=x%26flatten%3Dtrue%26k%3D2", body)
	if packed.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", packed.Code, packed.Body.String())
	}
	if got := packed.Header().Get("X-Cache"); got != "miss" {
		t.Fatalf("x-cache=%q, a packed value must not hit the split params' entry", got)
	}
	out, err := arrowipc.Decode(packed.Body.Bytes(), memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer out.Release()
	if out.NumRows() != 1 {
		t.Fatalf("rows=%d want one list row", out.NumRows())
	}
}

func TestHandleOp_Timeout(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpTimeout = -time.Second
	rr := post(t, newTestRouterWith(t, cfg, nil), "/v1/ops/grid_disk?k=1", cellsBody(t, sfRes5))
	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d want 504 body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandleOp_Errors(t *testing.T) {
	h := newTestRouter(t, nil)
	cases := []struct {
		name   string
		target string
		body   []byte
		want   int
	}{
		{"unknown op", "/v1/ops/no_such_op", cellsBody(t, sfRes5), http.StatusNotFound},
		{"garbage body", "/v1/ops/cells_area", []byte("not arrow"), http.StatusBadRequest},
		{"bad param", "/v1/ops/cells_area?unit=acres", cellsBody(t, sfRes5), http.StatusBadRequest},
		{"invalid cell", "/v1/ops/cells_to_string", cellsBody(t, 42), http.StatusBadRequest},
		{"missing column", "/v1/ops/wkb_to_cells?res=5", cellsBody(t, sfRes5), http.StatusBadRequest},
		{"disk too large", "/v1/ops/grid_disk?k=100000", cellsBody(t, sfRes5), http.StatusBadRequest},
		{"children too fine", "/v1/ops/change_resolution?res=15", cellsBody(t, sfRes5), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := post(t, h, tc.target, tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestHandleOp_BodyTooLarge(t *testing.T) {
	cfg := config.Defaults()
	r := chi.NewRouter()
	r.Post("/v1/ops/{op}", func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, 8)
		HandleOp(slog.New(slog.DiscardHandler), cfg, h3array.New(), nil)(w, req)
	})
	rr := post(t, r, "/v1/ops/cells_area", cellsBody(t, sfRes5))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d want 413", rr.Code)
	}
}
