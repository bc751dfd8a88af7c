package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringArg(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{name: "bare string", payload: `"u2"`, want: "u2"},
		{name: "object", payload: `{"byUserId":" u2 "}`, want: "u2"},
		{name: "empty", payload: ``, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
		{name: "blank string", payload: `"  "`, wantErr: true},
		{name: "missing field", payload: `{"other":"u2"}`, wantErr: true},
		{name: "number", payload: `42`, wantErr: true},
		{name: "non-string field", payload: `{"byUserId":1}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := StringArg(json.RawMessage(tc.payload), "byUserId")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
