package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/core/identity"
	"github.com/trezcool/academia/core/session"
	testutil "github.com/trezcool/academia/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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

type testEnv struct {
	app      *testutil.App
	sessions *session.MemoryStore
	srv      *echoapi.Server
}

func newTestEnv(t *testing.T, analyticsRepo ...analytics.Repository) testEnv {
	t.Helper()

	app := testutil.NewApp()
	agg := app.Analytics
	if len(analyticsRepo) > 0 {
		agg = analytics.NewAggregator(analyticsRepo[0])
	}
	env := testEnv{app: app, sessions: session.NewMemoryStore(app.Conf.Session.TTL)}
	env.srv = echoapi.NewServer(echoapi.Deps{
		Conf:       app.Conf,
		Logger:     app.Logger,
		Validator:  app.Validator,
		Sessions:   env.sessions,
		Auth:       app.Auth,
		Identities: app.Identities,
		Ledger:     app.Ledger,
		Engine:     app.Engine,
		Analytics:  agg,
	})
	return env
}

func (env testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func (env testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := env.serve(newAuthRequest(method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

// createUser stores an identity and logs it in, returning its token.
func (env testEnv) createUser(t *testing.T, name, email string, role identity.Role) (identity.Identity, string) {
	t.Helper()
	idt := testutil.CreateIdentity(t, env.app.IdentityRepo, name, email, role)
	return idt, env.login(t, email, testutil.Password)
}

func (env testEnv) login(t *testing.T, email, pwd string) string {
	t.Helper()
	body := marshalObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	rec := env.serve(newRequest(http.MethodPost, "/v1/auth/login", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decode(): %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
