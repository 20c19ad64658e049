// internal/server/router_test.go
//
// Unit-tests for the build daemon routes.
//
// Each sub-test wires Router to a fakeBuilder, fires an httptest request,
// and asserts the status code and JSON body.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/build"
	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/planner"
)

type fakeBuilder struct {
	got     buildspec.Options
	msg     string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeBuilder) Build(_ context.Context, opts buildspec.Options) (string, error) {
	f.got = opts
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.msg, f.err
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/build", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestBuild_OK(t *testing.T) {
	fb := &fakeBuilder{msg: "Build succeeded.\n"}
	rr := post(Router(fb, "", zap.NewNop().Sugar()), `{"database":"demo","keepSql":true}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if resp := decode(t, rr); resp.Message != "Build succeeded.\n" {
		t.Errorf("message = %q", resp.Message)
	}
	if fb.got.Database != "demo" || !fb.got.KeepSQL {
		t.Errorf("options = %+v", fb.got)
	}
}

func TestBuild_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&planner.UsageError{Msg: "cannot build from both a backup and a source tree"}, http.StatusBadRequest},
		{fmt.Errorf("%w: missing file", build.ErrConfig), http.StatusInternalServerError},
		{errors.New("psql exited 3"), http.StatusBadGateway},
	}
	for _, c := range cases {
		rr := post(Router(&fakeBuilder{err: c.err}, "", zap.NewNop().Sugar()), `{}`)
		if rr.Code != c.want {
			t.Errorf("%v: status = %d, want %d", c.err, rr.Code, c.want)
		}
		if resp := decode(t, rr); resp.Error != c.err.Error() {
			t.Errorf("error = %q, want %q", resp.Error, c.err.Error())
		}
	}
}

func TestBuild_RejectsRequestConfig(t *testing.T) {
	fb := &fakeBuilder{}
	rr := post(Router(fb, "/srv/xtuple/conf/xtbuild.yaml", zap.NewNop().Sugar()),
		`{"config":"/tmp/other.yaml","extension":"/abs/ext","database":"d"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if resp := decode(t, rr); resp.Error != msgConfigNotAllowed {
		t.Errorf("error = %q", resp.Error)
	}
	if fb.got != (buildspec.Options{}) {
		t.Errorf("builder was called with %+v", fb.got)
	}
}

func TestBuild_RequestConfigRunsNothing(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	cfgPath := filepath.Join(dir, "evil.yaml")
	yaml := fmt.Sprintf(`
database_server: {hostname: h, user: u}
datasource: {databases: [d]}
builders:
  client: [sh, -c, "touch %s"]
`, marker)
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	h := Router(&build.Builder{Cwd: dir, Log: zap.NewNop().Sugar()}, "", zap.NewNop().Sugar())
	rr := post(h, fmt.Sprintf(`{"config":%q,"extension":"/abs/ext","database":"d"}`, cfgPath))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if _, err := os.Stat(marker); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("builder command ran: stat err = %v", err)
	}
}

func TestBuild_UsesDaemonConfig(t *testing.T) {
	fb := &fakeBuilder{msg: "ok"}
	rr := post(Router(fb, "/srv/xtuple/conf/xtbuild.yaml", zap.NewNop().Sugar()), `{"database":"demo"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if fb.got.Config != "/srv/xtuple/conf/xtbuild.yaml" {
		t.Errorf("config = %q", fb.got.Config)
	}
}

func TestBuild_BadJSON(t *testing.T) {
	rr := post(Router(&fakeBuilder{}, "", zap.NewNop().Sugar()), `{`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestBuild_ConflictWhileRunning(t *testing.T) {
	fb := &fakeBuilder{started: make(chan struct{}), release: make(chan struct{})}
	h := Router(fb, "", zap.NewNop().Sugar())

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- post(h, `{}`) }()
	<-fb.started

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp := decode(t, health); !resp.Running {
		t.Error("healthz does not report the running build")
	}

	if rr := post(h, `{}`); rr.Code != http.StatusConflict {
		t.Errorf("second build status = %d, want 409", rr.Code)
	}

	close(fb.release)
	if rr := <-done; rr.Code != http.StatusOK {
		t.Errorf("first build status = %d, want 200", rr.Code)
	}
}

func TestMetrics(t *testing.T) {
	rr := httptest.NewRecorder()
	Router(&fakeBuilder{}, "", nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
