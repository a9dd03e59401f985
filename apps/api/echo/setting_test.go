package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core/setting"
)

func Test_settingApi_query(t *testing.T) {
	ta := setup(t)
	_, _, teacherToken := ta.tokens(t)

	tests := []httpTest{
		{name: "auth required", path: "/api/settings", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "defaults", path: "/api/settings", token: teacherToken, wantCode: http.StatusOK, wantData: marshalObj(t, setting.Defaults())},
		{
			name: "category defaults", path: "/api/settings/SECURITY", token: teacherToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, setting.CategoryDefaults(setting.CategorySecurity)),
		},
		{name: "unknown category", path: "/api/settings/weather", token: teacherToken, wantCode: http.StatusOK, wantData: []byte(`{}`)},
	}
	runHTTPTests(t, ta, tests)
	assert.False(t, ta.db.SettingsTableCreated())
}

func Test_settingApi_update(t *testing.T) {
	ta := setup(t)
	adminToken, staffToken, _ := ta.tokens(t)

	tests := []httpTest{
		{
			name: "admin required", method: http.MethodPut, path: "/api/settings", token: staffToken,
			body: []byte(`{"settings": [{"category": "general", "key": "siteName", "value": "X"}]}`), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name: "empty body", method: http.MethodPut, path: "/api/settings", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "validation failed", Errors: map[string]string{"settings": "this field is required"}}),
		},
		{
			name: "blank key", method: http.MethodPut, path: "/api/settings", token: adminToken,
			body:     []byte(`{"settings": [{"category": "general", "key": "  ", "value": 1}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "validation failed", Errors: map[string]string{"settings[0].key": "this field is required"}}),
		},
		{
			name: "missing value", method: http.MethodPut, path: "/api/settings", token: adminToken,
			body:     []byte(`{"settings": [{"category": "general", "key": "siteName"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "validation failed", Errors: map[string]string{"settings[0].value": "this field is required"}}),
		},
		{
			name: "null value", method: http.MethodPut, path: "/api/settings", token: adminToken,
			body: []byte(`{"settings": [{"category": "general", "key": "siteName", "value": null}]}`), wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, ta, tests)
	assert.False(t, ta.db.SettingsTableCreated())

	body := []byte(`{"settings": [
		{"category": "general", "key": "siteName", "value": "EduTrack Academy"},
		{"category": "Payment", "key": "bankDetails", "value": {"name": "BIDV", "branch": {"city": "Hanoi"}, "swift": ["BIDVVNVX"]}},
		{"category": "security", "key": "sessionTimeout", "value": 45}
	]}`)
	req, rec := newAuthRequest(http.MethodPut, "/api/settings", adminToken, body)
	ta.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, ta.db.SettingsTableCreated())

	var res UpdateSettingsResponse
	decodeBody(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "Settings updated successfully", res.Message)
	require.Contains(t, res.Settings, "payment")
	assert.Len(t, res.Settings["payment"], 1) // only what was persisted
	assert.Equal(t, float64(45), res.Settings["security"]["sessionTimeout"].Interface())

	runHTTPTests(t, ta, []httpTest{
		{
			name: "object value round trip", path: "/api/settings/payment", token: staffToken, wantCode: http.StatusOK,
			wantData: []byte(`{"bankDetails": {"name": "BIDV", "branch": {"city": "Hanoi"}, "swift": ["BIDVVNVX"]}}`),
		},
		{
			name: "category is case insensitive", path: "/api/settings/GENERAL", token: staffToken, wantCode: http.StatusOK,
			wantData: []byte(`{"siteName": "EduTrack Academy"}`),
		},
	})

	// persisted settings overlay the defaults
	req, rec = newAuthRequest(http.MethodGet, "/api/settings", staffToken)
	ta.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var all setting.Grouped
	decodeBody(t, rec, &all)
	assert.Equal(t, "EduTrack Academy", all["general"]["siteName"].Interface())
	assert.Equal(t, "vi", all["general"]["language"].Interface())
	assert.Equal(t, float64(45), all["security"]["sessionTimeout"].Interface())
	assert.Contains(t, all["payment"], "currency")
	assert.Contains(t, all["payment"], "bankDetails")
}
