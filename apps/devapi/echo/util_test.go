package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/evaluation"
	"github.com/trainingcmd/portal/core/news"
	"github.com/trainingcmd/portal/core/schedule"
	"github.com/trainingcmd/portal/core/user"
	emailsvc "github.com/trainingcmd/portal/services/email"
	inmemdb "github.com/trainingcmd/portal/storage/database/inmem"
	testutil "github.com/trainingcmd/portal/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app      *server
	mediaDir string

	usrRepo     user.Repository
	mailer      *emailsvc.ServiceMock
	scheduleSvc *schedule.Service
	evalSvc     *evaluation.Service
	newsSvc     *news.Service

	admin, teacher, student user.Account
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := &core.Config{
		Env:      "TEST",
		AppName:  "Training Portal",
		TestMode: true,
		Server: core.ServerConfig{
			SecretKey:                 "test-secret",
			JWTExpirationDelta:        time.Minute,
			JWTRefreshExpirationDelta: time.Hour,
			MediaDir:                  t.TempDir(),
			PasswordResetTimeout:      time.Hour,
		},
	}
	validate, translator := core.NewValidator()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	// set up services
	env := &testEnv{
		mediaDir:    conf.Server.MediaDir,
		usrRepo:     usrRepo,
		mailer:      emailsvc.NewServiceMock(conf),
		scheduleSvc: schedule.NewService(inmemdb.NewScheduleRepository(db), usrRepo, validate),
		evalSvc:     evaluation.NewService(inmemdb.NewEvaluationRepository(db), usrRepo),
		newsSvc:     news.NewService(inmemdb.NewNewsRepository(db)),
	}
	env.admin = testutil.CreateAccount(t, usrRepo, "admin", "", user.RoleAdmin, "Unit", "Admin", true)
	env.teacher = testutil.CreateAccount(t, usrRepo, "suksan", "", user.RoleTeacher, "Suksan", "Ruang", true)
	env.student = testutil.CreateAccount(t, usrRepo, "somchai", "", user.RoleStudent, "Somchai", "", true)

	// set up server
	env.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         core.NopLogger{},
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        user.NewService(usrRepo, validate),
		Resetter:       user.NewPasswordResetter(usrRepo, validate, env.mailer, conf.Server.SecretKey, conf.Server.PasswordResetTimeout),
		ScheduleSvc:    env.scheduleSvc,
		EvaluationSvc:  env.evalSvc,
		NewsSvc:        env.newsSvc,
	}).(*server)
	return env
}

// token returns an access token for acc.
func (env *testEnv) token(t *testing.T, acc user.Account) string {
	t.Helper()
	access, _, err := env.app.tokens.issue(acc.User, 0)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return access
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
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
	check    func(t *testing.T, rec *httptest.ResponseRecorder)
}

func (tt httpTest) run(t *testing.T, env *testEnv) {
	t.Run(tt.name, func(t *testing.T) {
		rec := env.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
		checkCodeAndData(t, tt, rec)
		if tt.check != nil {
			tt.check(t, rec)
		}
	})
}

func newAuthRequest(method, path, token string, data []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newAvatarRequest(t *testing.T, token, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		t.Fatalf("newAvatarRequest() failed: %v", err)
	}
	_, _ = fw.Write(content)
	if err = mw.Close(); err != nil {
		t.Fatalf("newAvatarRequest() failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
