package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agribenchmark/farmsync/backend"
	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
)

const testFarm = "DE_2024_5f0c6a3e-5d1b-4b7a-9a57-0d7c1b8e2f10"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  "); !errors.Is(err, config.ErrMissingBackendURL) {
		t.Fatalf("expected ErrMissingBackendURL, got %v", err)
	}
}

func TestClientAgainstBackend(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, backend.NewRouter(backend.NewMemoryStore(), backend.Options{}))

	rows, err := c.FetchRows(ctx, "/landuse", testFarm)
	if err != nil {
		t.Fatalf("FetchRows on empty farm: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil rows, got %#v", rows)
	}

	exists, err := c.Exists(ctx, JoinPath("/landuse", "r1"))
	if err != nil || exists {
		t.Fatalf("Exists before create: exists=%v err=%v", exists, err)
	}

	created, err := c.Create(ctx, "/landuse", record.Record{"id": "r1", "farm_id": testFarm, "hectares": 3.5})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID() != "r1" {
		t.Fatalf("Create returned %v", created)
	}

	exists, err = c.Exists(ctx, JoinPath("/landuse", "r1"))
	if err != nil || !exists {
		t.Fatalf("Exists after create: exists=%v err=%v", exists, err)
	}

	if _, err := c.Replace(ctx, "/landuse", "r1", record.Record{"id": "r1", "farm_id": testFarm, "hectares": 4.0}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	rows, err = c.FetchRows(ctx, "/landuse", testFarm)
	if err != nil {
		t.Fatalf("FetchRows: %v", err)
	}
	want := []record.Record{{"id": "r1", "farm_id": testFarm, "hectares": 4.0}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Remove(ctx, JoinPath("/landuse", "r1")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, err = c.Remove(ctx, JoinPath("/landuse", "r1"))
	if !IsNotFound(err) || StatusCode(err) != http.StatusNotFound {
		t.Fatalf("second Remove expected 404, got %v", err)
	}
}

func TestFetchRowsWithoutScopeMakesNoRequest(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	rows, err := c.FetchRows(context.Background(), "/landuse", "")
	if err != nil || rows != nil {
		t.Fatalf("expected nil rows and no error, got %v %v", rows, err)
	}
	if calls != 0 {
		t.Fatalf("expected no request, got %d", calls)
	}
}

func TestEmptyPathIsRejected(t *testing.T) {
	c, _ := New("http://127.0.0.1:1")
	if _, err := c.Fetch(context.Background(), ""); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestExistsRethrowsNon404(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	exists, err := c.Exists(context.Background(), "/landuse/x")
	if exists || StatusCode(err) != http.StatusForbidden {
		t.Fatalf("expected 403 error, got exists=%v err=%v", exists, err)
	}
}

func TestFetchRowsSurfacesServerErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	_, err := c.FetchRows(context.Background(), "/landuse", testFarm)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError || se.Body != "boom" {
		t.Fatalf("expected StatusError 500 boom, got %v", err)
	}
}

func TestFetchRowsWrapsSingleObject(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"only","farm_id":"F"}`))
	}))
	rows, err := c.FetchRows(context.Background(), "/generalfarm", "F")
	if err != nil {
		t.Fatalf("FetchRows: %v", err)
	}
	if len(rows) != 1 || rows[0].ID() != "only" {
		t.Fatalf("expected single wrapped row, got %v", rows)
	}
}

func TestTimeoutSurfacesAsErrTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.Fetch(context.Background(), "/landuse")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestHeadersCarryTokenAndCorrelationId(t *testing.T) {
	var gotAuth, gotCid string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCid = r.Header.Get("x-correlation-id")
		_, _ = w.Write([]byte(`[]`))
	}), WithToken("secret"))

	ctx := utils.SetCorrelationIdInContext(context.Background(), "cid-7")
	if _, err := c.Fetch(ctx, "/landuse"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotAuth != "Bearer secret" || gotCid != "cid-7" {
		t.Fatalf("unexpected headers auth=%q cid=%q", gotAuth, gotCid)
	}

	ctx = utils.SetTokenInContext(ctx, "per-request")
	if _, err := c.Fetch(ctx, "/landuse"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotAuth != "Bearer per-request" {
		t.Fatalf("context token not used, auth=%q", gotAuth)
	}
}

func TestJoinPathEscapesSegments(t *testing.T) {
	if got := JoinPath("/landuse/", "a b", "c/d"); got != "/landuse/a%20b/c%2Fd" {
		t.Fatalf("unexpected path %q", got)
	}
}
