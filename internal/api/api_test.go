package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/veleda/ansuz/internal/testutil"
	"github.com/veleda/ansuz/internal/token"
)

const testSecret = "api-test-secret-32-characters!!!"

// testEnv sets up a temp subject dir, users DB, service, and router.
func testEnv(t *testing.T) (*Service, http.Handler) {
	t.Helper()

	_, store := testutil.TestWiki(t)
	accounts := testutil.TestUsers(t)

	svc := NewService(store, accounts, nil, testSecret, 15*time.Minute, 24*time.Hour)
	return svc, NewRouter(svc, testSecret, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signUp(t *testing.T, router http.Handler, username, password string) SessionResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/signup", SignUpRequest{Username: username, Password: password})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", w.Code, w.Body.String())
	}
	var sess SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestSignUpAndSignIn(t *testing.T) {
	_, router := testEnv(t)

	sess := signUp(t, router, "alice", "alice-pass")
	if sess.Username != "alice" || sess.Token == "" || sess.Refresh == "" {
		t.Fatalf("session = %+v", sess)
	}
	if !sess.RefreshExpiresAt.After(sess.TokenExpiresAt) {
		t.Errorf("refresh expiry %v not after access expiry %v", sess.RefreshExpiresAt, sess.TokenExpiresAt)
	}

	w := doJSON(t, router, http.MethodPost, "/auth/signin", SignInRequest{Username: "alice", Password: "alice-pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("signin status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/auth/signin", SignInRequest{Username: "alice", Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w.Code)
	}
}

func TestSignUpRejections(t *testing.T) {
	_, router := testEnv(t)
	signUp(t, router, "alice", "alice-pass")

	// Taken username.
	w := doJSON(t, router, http.MethodPost, "/auth/signup", SignUpRequest{Username: "alice", Password: "other"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("duplicate signup status = %d, want 401", w.Code)
	}

	// Reference password policy.
	w = doJSON(t, router, http.MethodPost, "/auth/signup", SignUpRequest{Username: "bob", Password: "badpass"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("badpass signup status = %d, want 401", w.Code)
	}
}

func TestSignInWithRefreshToken(t *testing.T) {
	_, router := testEnv(t)
	sess := signUp(t, router, "alice", "alice-pass")

	w := doJSON(t, router, http.MethodPost, "/auth/signin", SignInRequest{Username: "alice", RefreshToken: sess.Refresh})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh signin status = %d, body = %s", w.Code, w.Body.String())
	}
	var renewed SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &renewed); err != nil {
		t.Fatal(err)
	}
	if renewed.Token == "" {
		t.Error("no access token from refresh")
	}

	// A refresh token belonging to someone else is rejected.
	w = doJSON(t, router, http.MethodPost, "/auth/signin", SignInRequest{Username: "mallory", RefreshToken: sess.Refresh})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("mismatched refresh status = %d, want 401", w.Code)
	}

	// An access token does not work as a refresh token.
	w = doJSON(t, router, http.MethodPost, "/auth/signin", SignInRequest{Username: "alice", RefreshToken: sess.Token})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("access-as-refresh status = %d, want 401", w.Code)
	}
}

func TestSignOut(t *testing.T) {
	_, router := testEnv(t)
	w := doJSON(t, router, http.MethodPost, "/auth/signout", struct{}{})
	if w.Code != http.StatusNoContent {
		t.Errorf("signout status = %d, want 204", w.Code)
	}
}

func putSubject(t *testing.T, router http.Handler, method, name, content, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/subject/"+name, strings.NewReader(content))
	req.Header.Set("Content-Type", "text/markdown")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubjectCRUD(t *testing.T) {
	_, router := testEnv(t)
	sess := signUp(t, router, "alice", "alice-pass")

	// Create.
	w := putSubject(t, router, http.MethodPost, "alpha", "# Alpha\n", sess.Token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	// List.
	req := httptest.NewRequest(http.MethodGet, "/subjects", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list SubjectListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Subjects) != 1 || list.Subjects[0] != "alpha" {
		t.Errorf("subjects = %v", list.Subjects)
	}

	// Get.
	req = httptest.NewRequest(http.MethodGet, "/subject/alpha", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w.Body.String() != "# Alpha\n" {
		t.Errorf("content = %q", w.Body.String())
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}

	// Update.
	w = putSubject(t, router, http.MethodPut, "alpha", "# Alpha v2\n", sess.Token)
	if w.Code != http.StatusNoContent {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	req = httptest.NewRequest(http.MethodGet, "/subject/alpha", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Body.String() != "# Alpha v2\n" {
		t.Errorf("content after update = %q", w.Body.String())
	}
}

func TestGetSubjectNotFound(t *testing.T) {
	_, router := testEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/subject/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateMissingSubjectIs404(t *testing.T) {
	_, router := testEnv(t)
	sess := signUp(t, router, "alice", "alice-pass")

	w := putSubject(t, router, http.MethodPut, "ghost", "content", sess.Token)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateDuplicateSubjectIs409(t *testing.T) {
	_, router := testEnv(t)
	sess := signUp(t, router, "alice", "alice-pass")

	if w := putSubject(t, router, http.MethodPost, "dup", "v1", sess.Token); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := putSubject(t, router, http.MethodPost, "dup", "v2", sess.Token); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestWritesRequireAuth(t *testing.T) {
	_, router := testEnv(t)

	if w := putSubject(t, router, http.MethodPost, "alpha", "x", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	if w := putSubject(t, router, http.MethodPut, "alpha", "x", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", w.Code)
	}

	// Expired access token.
	expired, _, err := token.Issue("alice", token.Access, -time.Minute, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if w := putSubject(t, router, http.MethodPost, "alpha", "x", expired); w.Code != http.StatusUnauthorized {
		t.Errorf("expired token: status = %d, want 401", w.Code)
	}

	// Refresh tokens cannot authorize writes.
	refresh, _, err := token.Issue("alice", token.Refresh, time.Hour, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if w := putSubject(t, router, http.MethodPost, "alpha", "x", refresh); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh-as-access: status = %d, want 401", w.Code)
	}
}

func TestEscapedSubjectNames(t *testing.T) {
	_, router := testEnv(t)
	sess := signUp(t, router, "alice", "alice-pass")

	w := putSubject(t, router, http.MethodPost, "two%20words", "spaced", sess.Token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/subject/two%20words", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK || w2.Body.String() != "spaced" {
		t.Errorf("get = %d, %q", w2.Code, w2.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/subjects", nil)
	w2 = httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	var list SubjectListResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Subjects) != 1 || list.Subjects[0] != "two words" {
		t.Errorf("subjects = %v, want [two words]", list.Subjects)
	}
}
