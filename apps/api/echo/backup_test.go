package echoapi

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core/backup"
	dummydb "github.com/trezcool/edutrack/storage/database/dummy"
)

func createBackup(t *testing.T, ta *testApp, token, descr string) backup.Backup {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/api/backup/create", token, marshalObj(t, map[string]string{"description": descr}))
	ta.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res CreateBackupResponse
	decodeBody(t, rec, &res)
	require.True(t, res.Success)
	return res.Backup
}

func Test_backupApi_auth(t *testing.T) {
	ta := setup(t)
	_, staffToken, _ := ta.tokens(t)

	var tests []httpTest
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/backup/stats"},
		{http.MethodGet, "/api/backup/list"},
		{http.MethodPost, "/api/backup/create"},
		{http.MethodGet, "/api/backup/download/x"},
		{http.MethodPost, "/api/backup/restore/x"},
		{http.MethodDelete, "/api/backup/x"},
	} {
		tests = append(tests,
			httpTest{
				name: route.method + " " + route.path + " (auth required)", method: route.method, path: route.path,
				wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
			},
			httpTest{
				name: route.method + " " + route.path + " (admin required)", method: route.method, path: route.path,
				token: staffToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
			},
		)
	}
	runHTTPTests(t, ta, tests)
	assert.Empty(t, ta.engine.Backups())
}

func Test_backupApi_lifecycle(t *testing.T) {
	ta := setup(t)
	adminToken, _, _ := ta.tokens(t)

	// empty dir
	runHTTPTests(t, ta, []httpTest{
		{name: "empty list", path: "/api/backup/list", token: adminToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name: "empty stats", path: "/api/backup/stats", token: adminToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, backup.Stats{RetentionDays: 30}),
		},
	})

	b := createBackup(t, ta, adminToken, "end of term")
	assert.Equal(t, "end of term", b.Description)
	assert.Equal(t, backup.TypeManual, b.Type)
	assert.Equal(t, backup.StatusCompleted, b.Status)

	t.Run("list & stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/backup/list", adminToken)
		ta.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		var backups []backup.Backup
		decodeBody(t, rec, &backups)
		require.Len(t, backups, 1)
		assert.Equal(t, b.ID, backups[0].ID)

		req, rec = newAuthRequest(http.MethodGet, "/api/backup/stats", adminToken)
		ta.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		var stats backup.Stats
		decodeBody(t, rec, &stats)
		assert.Equal(t, 1, stats.TotalBackups)
		assert.Equal(t, b.Size, stats.TotalSize)
		require.NotNil(t, stats.LastBackup)
	})

	t.Run("download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/backup/download/"+b.ID, adminToken)
		ta.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="`+b.Filename+`"`, rec.Header().Get("Content-Disposition"))

		content, err := os.ReadFile(filepath.Join(ta.backups.Dir(), b.Filename))
		require.NoError(t, err)
		assert.Equal(t, content, rec.Body.Bytes())
	})

	t.Run("restore", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/backup/restore/"+b.ID, adminToken)
		ta.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, RestoreBackupResponse{
				Success:      true,
				Message:      "Database restored successfully",
				RestoredFrom: b.Filename,
			}),
		}, rec)
		assert.Len(t, ta.engine.Restores(), 1)
		assert.Equal(t, dummydb.ModeMultiUser, ta.engine.Mode())
	})

	t.Run("delete", func(t *testing.T) {
		runHTTPTests(t, ta, []httpTest{
			{
				name: "first", method: http.MethodDelete, path: "/api/backup/" + b.ID, token: adminToken, wantCode: http.StatusOK,
				wantData: marshalObj(t, DeleteBackupResponse{
					Success:  true,
					Message:  "Backup deleted successfully",
					Filename: b.Filename,
				}),
			},
			{
				name: "second", method: http.MethodDelete, path: "/api/backup/" + b.ID, token: adminToken,
				wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Message: "backup: not found"}),
			},
		})
		assert.NoFileExists(t, filepath.Join(ta.backups.Dir(), b.Filename))
	})
}

func Test_backupApi_notFound(t *testing.T) {
	ta := setup(t)
	adminToken, _, _ := ta.tokens(t)
	notFound := marshalObj(t, httpErr{Message: "backup: not found"})

	runHTTPTests(t, ta, []httpTest{
		{name: "download", path: "/api/backup/download/missing", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "download (traversal)", path: "/api/backup/download/..%2F..%2Fetc%2Fpasswd", token: adminToken,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "restore", method: http.MethodPost, path: "/api/backup/restore/missing", token: adminToken,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{name: "delete", method: http.MethodDelete, path: "/api/backup/missing", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
	})

	// the database mode was never touched
	assert.Empty(t, ta.engine.Restores())
	assert.Equal(t, dummydb.ModeMultiUser, ta.engine.Mode())
}

func Test_backupApi_failures(t *testing.T) {
	ta := setup(t)
	adminToken, _, _ := ta.tokens(t)
	b := createBackup(t, ta, adminToken, "")
	serverErr := marshalObj(t, httpErr{Message: "Internal Server Error"})

	ta.engine.BackupErr = errors.New("disk full")
	ta.engine.RestoreErr = errors.New("exclusive access could not be obtained")

	runHTTPTests(t, ta, []httpTest{
		{name: "create", method: http.MethodPost, path: "/api/backup/create", token: adminToken, wantCode: http.StatusInternalServerError, wantData: serverErr},
		{
			name: "restore", method: http.MethodPost, path: "/api/backup/restore/" + b.ID, token: adminToken,
			wantCode: http.StatusInternalServerError, wantData: serverErr,
		},
	})
	assert.Equal(t, dummydb.ModeMultiUser, ta.engine.Mode())

	t.Run("debug mode exposes the error", func(t *testing.T) {
		ta.server.app.Debug = true
		defer func() { ta.server.app.Debug = false }()

		req, rec := newAuthRequest(http.MethodPost, "/api/backup/restore/"+b.ID, adminToken)
		ta.serve(req, rec)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var res ErrorResponse
		decodeBody(t, rec, &res)
		assert.Contains(t, res.Error, "exclusive access could not be obtained")
	})

	t.Run("corrupted", func(t *testing.T) {
		ta.engine.RestoreErr = nil
		require.NoError(t, os.WriteFile(filepath.Join(ta.backups.Dir(), b.Filename), []byte("tampered"), 0640))

		req, rec := newAuthRequest(http.MethodPost, "/api/backup/restore/"+b.ID, adminToken)
		ta.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Message: backup.ErrCorrupted.Error()}),
		}, rec)
	})

	t.Run("description too long", func(t *testing.T) {
		long := make([]byte, 256)
		for i := range long {
			long[i] = 'a'
		}
		req, rec := newAuthRequest(http.MethodPost, "/api/backup/create", adminToken, marshalObj(t, map[string]string{"description": string(long)}))
		ta.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
