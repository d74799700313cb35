package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"
	"time"

	echoapi "github.com/shuleapp/shule/apps/api/echo"
	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/account"
	emailsvc "github.com/shuleapp/shule/services/email"
	logsvc "github.com/shuleapp/shule/services/logger"
	mediasvc "github.com/shuleapp/shule/services/media"
	dummydb "github.com/shuleapp/shule/storage/database/dummy"
)

var errMissingToken = httpErr{Message: "missing or malformed jwt"}

func ctx() context.Context { return context.Background() }

func newTestLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(io.Discard, "", 0)
}

type testEnv struct {
	conf   *core.Config
	app    echoapi.Server
	repo   account.Repository
	svc    *account.Service
	tokens *account.TokenService
}

func setupAPI(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		TestMode:         true,
		AppName:          "Shule",
		SecretKey:        "s3cret",
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Shule", Address: "noreply@localhost"},
		Server:           core.ServerConfig{JWTExpirationDelta: time.Hour},
		Media:            core.MediaConfig{Root: t.TempDir(), BaseURL: "/media"},
	}

	validate, translator := core.NewValidator()
	account.RegisterValidators(validate, translator)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	repo := dummydb.NewAccountRepository(db)

	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	mediaSvc, err := mediasvc.NewLocalService(conf)
	if err != nil {
		t.Fatalf("mediasvc.NewLocalService(): %v", err)
	}

	tokens := account.NewTokenService(conf)
	svc := account.NewService(conf, repo, tokens, mailSvc)

	app := echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logsvc.NewStdLogger(newTestLogger(t)),
		AccountSvc:     svc,
		Media:          mediaSvc,
		Validate:       validate,
		Translator:     translator,
	})

	return &testEnv{conf: conf, app: app, repo: repo, svc: svc, tokens: tokens}
}

func (env *testEnv) createStudent(t *testing.T, email string) account.Account {
	t.Helper()

	acct, _, err := env.svc.RegisterStudent(ctx(), account.NewStudent{
		FirstName: "Awa",
		LastName:  "Diop",
		Email:     email,
		Password:  "LePassword",
		Age:       20,
	})
	if err != nil {
		t.Fatalf("createStudent(): %v", err)
	}
	return acct
}

func (env *testEnv) createTeacher(t *testing.T, email string) account.Account {
	t.Helper()

	acct, _, err := env.svc.RegisterTeacher(ctx(), account.NewTeacher{
		FirstName: "Jim",
		LastName:  "Halpert",
		Email:     email,
		Password:  "LePassword",
	})
	if err != nil {
		t.Fatalf("createTeacher(): %v", err)
	}
	return acct
}

func (env *testEnv) getToken(t *testing.T, acct account.Account) string {
	t.Helper()

	token, err := env.tokens.Issue(acct)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

type httpErr struct {
	Message string `json:"message"`
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

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
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

// checkCodeAndData compares the response code and, when tt.wantData is set,
// the JSON body.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
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
