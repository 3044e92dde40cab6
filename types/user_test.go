package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserKeepsUnknownMembers(t *testing.T) {
	raw := `{"userID":"u1","email":"","createdAt":"","updatedAt":"","codeRuns":[],"team":{"name":"a&b"}}`

	var user User
	require.NoError(t, json.Unmarshal([]byte(raw), &user))
	require.False(t, user.Malformed())
	require.Equal(t, "u1", user.UserID)
	require.Contains(t, user.Extra, "team")

	data, err := json.Marshal(user)
	require.NoError(t, err)
	require.JSONEq(t, raw, string(data))
}

func TestUserMalformedEntriesRoundTrip(t *testing.T) {
	for _, raw := range []string{`{"userID":5}`, `42`, `"u1"`, `null`, `{"userID":"u1","codeRuns":"none"}`} {
		var user User
		require.NoError(t, json.Unmarshal([]byte(raw), &user), raw)
		assert.True(t, user.Malformed(), raw)

		data, err := json.Marshal(user)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(data))
	}
}

func TestFindUserSkipsMalformedEntries(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"users":[{"userID":"u1","createdAt":1},{"userID":"u1"}]}`), &doc))
	require.Len(t, doc.Users, 2)
	require.Equal(t, 1, doc.FindUser("u1"))
}

func TestCodeRunMarshalDoesNotEscapeHTML(t *testing.T) {
	data, err := CodeRun{ID: "1", Language: "go", Code: "a < b && c > d"}.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `{"id":"1","time":"","language":"go","code":"a < b && c > d"}`, string(data))
}
