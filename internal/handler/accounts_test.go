package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountsAccessControl(t *testing.T) {
	env := newTestEnv(t)
	financial := env.login(t, map[string]string{"email": "fin@college.edu", "password": "finpass", "role": "admin", "adminSubRole": "financial"})
	student := env.login(t, map[string]string{"email": "asha@college.edu", "password": "ashapass", "role": "student"})
	academic := env.login(t, map[string]string{"email": "acad@college.edu", "password": "acadpass", "role": "admin", "adminSubRole": "academic"})

	newAccount := map[string]any{"name": "Kiran", "email": "kiran@college.edu", "role": "parent"}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		token  string
		status int
	}{
		{name: "anonymous list", method: http.MethodGet, path: "/accounts", status: http.StatusUnauthorized},
		{name: "student list", method: http.MethodGet, path: "/accounts", token: student, status: http.StatusForbidden},
		{name: "financial admin list", method: http.MethodGet, path: "/accounts", token: financial, status: http.StatusOK},
		{name: "financial admin create", method: http.MethodPost, path: "/accounts", body: newAccount, token: financial, status: http.StatusForbidden},
		{name: "financial admin delete", method: http.MethodDelete, path: "/accounts/stu-asha", token: financial, status: http.StatusForbidden},
		{name: "academic admin get", method: http.MethodGet, path: "/accounts/fac-hod", token: academic, status: http.StatusOK},
		{name: "missing account", method: http.MethodGet, path: "/accounts/nobody", token: academic, status: http.StatusNotFound},
		{name: "initial admin is protected", method: http.MethodPatch, path: "/accounts/root", body: map[string]any{"name": "Mallory"}, token: academic, status: http.StatusForbidden},
		{name: "bad role filter", method: http.MethodGet, path: "/accounts?role=janitor", token: academic, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.status, resp.StatusCode, body.Message)
		})
	}

	_, err := env.store.GetAccountByID(context.Background(), "stu-asha")
	assert.NoError(t, err)
}

func TestCreateAccount(t *testing.T) {
	env := newTestEnv(t)
	admin := &recordingObserver{id: "dashboard"}
	env.observers.Join(admin)
	token := env.login(t, map[string]string{"email": "acad@college.edu", "password": "acadpass", "role": "admin", "adminSubRole": "academic"})

	resp, body := env.do(t, http.MethodPost, "/accounts", map[string]any{
		"name":  "Meera",
		"email": " Meera@College.edu  ",
		"role":  "student",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	var identity domain.Identity
	require.NoError(t, json.Unmarshal(body.Data, &identity))
	assert.Equal(t, "meera@college.edu", identity.Email)

	updates := admin.Received()
	require.Len(t, updates, 1)
	assert.Equal(t, int64(2), updates[0].Count)

	mails := env.mailer.Messages()
	require.Len(t, mails, 1)
	assert.Equal(t, domain.MailTypeAccountCreated, mails[0].Type)
	data, ok := mails[0].Data.(domain.AccountCreatedMailData)
	require.True(t, ok)
	assert.Len(t, data.Password, env.cfg.NewUser.PasswordLength)

	// the mailed password signs the new account in
	env.login(t, map[string]string{"email": "meera@college.edu", "password": data.Password, "role": "student"})

	resp, _ = env.do(t, http.MethodPost, "/accounts", map[string]any{
		"name":  "Meera Again",
		"email": "meera@college.edu",
		"role":  "student",
	}, token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Len(t, admin.Received(), 1)
}

func TestUpdateAccountRoleChangeNotifies(t *testing.T) {
	env := newTestEnv(t)
	admin := &recordingObserver{id: "dashboard"}
	env.observers.Join(admin)
	token := env.login(t, map[string]string{"email": "acad@college.edu", "password": "acadpass", "role": "admin", "adminSubRole": "academic"})

	resp, body := env.do(t, http.MethodPatch, "/accounts/fac-hod", map[string]any{"name": "Dr. K. Rao"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)
	assert.Empty(t, admin.Received())

	resp, _ = env.do(t, http.MethodPatch, "/accounts/stu-asha", map[string]any{"role": "faculty"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "faculty needs a sub-role")

	resp, body = env.do(t, http.MethodPatch, "/accounts/stu-asha", map[string]any{"role": "faculty", "facultySubRole": "Professor"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	var identity domain.Identity
	require.NoError(t, json.Unmarshal(body.Data, &identity))
	require.NotNil(t, identity.FacultySubRole)
	assert.Equal(t, domain.FacultyProfessor, *identity.FacultySubRole)

	updates := admin.Received()
	require.Len(t, updates, 1)
	assert.Equal(t, int64(0), updates[0].Count)
}

func TestDeleteStudentNotifies(t *testing.T) {
	env := newTestEnv(t)
	admin := &recordingObserver{id: "dashboard"}
	env.observers.Join(admin)
	token := env.login(t, map[string]string{"email": "acad@college.edu", "password": "acadpass", "role": "admin", "adminSubRole": "academic"})

	resp, body := env.do(t, http.MethodDelete, "/accounts/stu-asha", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	updates := admin.Received()
	require.Len(t, updates, 1)
	assert.Equal(t, int64(0), updates[0].Count)

	resp, _ = env.do(t, http.MethodDelete, "/accounts/stu-asha", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateAccountPassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, map[string]string{"email": "acad@college.edu", "password": "acadpass", "role": "admin", "adminSubRole": "academic"})

	resp, _ := env.do(t, http.MethodPatch, "/accounts/fac-hod/password", map[string]any{"password": "abc"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPatch, "/accounts/fac-hod/password", map[string]any{"password": "replaced1"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	env.login(t, map[string]string{"email": "hod@college.edu", "password": "replaced1", "role": "faculty", "facultySubRole": "hod"})
}

func TestGetStudentCount(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/students/count", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var update domain.StudentCountUpdate
	require.NoError(t, json.Unmarshal(body.Data, &update))
	assert.Equal(t, int64(1), update.Count)
	assert.False(t, update.Timestamp.IsZero())
}
