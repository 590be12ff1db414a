package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/Kingsman71/Binary-Learning/apps/api/echo"
	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/auth"
	"github.com/Kingsman71/Binary-Learning/core/program"
	"github.com/Kingsman71/Binary-Learning/core/student"
	"github.com/Kingsman71/Binary-Learning/services/email"
	"github.com/Kingsman71/Binary-Learning/services/ratelimit"
	"github.com/Kingsman71/Binary-Learning/storage/database/inmem"
	"github.com/Kingsman71/Binary-Learning/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errUnauthorized = httpErr{Error: core.ErrUnauthenticated.Error()}
	errForbidden    = httpErr{Error: core.ErrForbidden.Error()}

	ada    = auth.Identity{UID: "uid-ada", Email: "ada@test.cd", DisplayName: "Ada Lovelace", Role: auth.RoleStudent}
	alan   = auth.Identity{UID: "uid-alan", Email: "alan@test.cd", DisplayName: "Alan Turing", Role: auth.RoleStudent}
	grace  = auth.Identity{UID: "uid-grace", Email: "grace@bb.cd", DisplayName: "Grace Hopper", Role: auth.RoleCounselor}
	nobody = auth.Identity{UID: "uid-nobody", Email: "nobody@test.cd"}
)

type fixture struct {
	conf    *core.Config
	server  *Server
	appRepo application.Repository
	stdRepo student.Repository
	sender  *emailsvc.ConsoleSender
}

func setup(t *testing.T, limiter ...ratelimit.Limiter) fixture {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()

	// set up DB & repos
	db := inmemdb.Open()
	t.Cleanup(func() { _ = db.Close() })
	appRepo := inmemdb.NewApplicationRepository(db)
	stdRepo := inmemdb.NewStudentRepository(db)

	// set up services
	catalog, err := program.DefaultCatalog()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	validate := core.NewValidator()
	sender := emailsvc.NewConsoleSenderMock(conf)
	mailSvc := emailsvc.NewServiceMock(sender, logger)

	deps := ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Catalog:        catalog,
		StudentSvc:     student.NewService(stdRepo, validate),
		ApplicationSvc: application.NewService(appRepo, catalog, mailSvc, validate, logger),
		DisableReqLogs: true,
	}
	if len(limiter) > 0 {
		deps.Limiter = limiter[0]
	}

	// set up server
	server := NewServer(deps)
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	return fixture{conf: conf, server: server, appRepo: appRepo, stdRepo: stdRepo, sender: sender}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (f fixture) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	f.server.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, id auth.Identity) string {
	token, err := GenerateToken(GetIdentityClaims(id, conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode(%s) failed: %v", rec.Body.String(), err)
	}
}
