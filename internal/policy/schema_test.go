package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaJSON(t *testing.T) {
	raw, err := SchemaJSON(KindSecurityRule)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "folder")
	assert.Contains(t, props, "profile_setting")
	assert.NotContains(t, props, "id")
	assert.Equal(t, false, doc["additionalProperties"])
	assert.Equal(t, []interface{}{"name"}, doc["required"])

	_, err = SchemaJSON(Kind("nat-rule"))
	assert.Error(t, err)
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		doc     string
		wantErr bool
	}{
		{"minimal rule", KindSecurityRule, `{"name":"r","folder":"f"}`, false},
		{"rule unknown key", KindSecurityRule, `{"name":"r","folder":"f","colour":"blue"}`, true},
		{"rule bad enum", KindSecurityRule, `{"name":"r","folder":"f","rulebase":"middle"}`, true},
		{"rule list of numbers", KindSecurityRule, `{"name":"r","folder":"f","tag":[1,2]}`, true},
		{"rule missing name", KindSecurityRule, `{"folder":"f"}`, true},
		{"address", KindAddress, `{"name":"a","folder":"f","ip_netmask":"10.0.0.1"}`, false},
		{"address bad range", KindAddress, `{"name":"a","folder":"f","ip_range":"10.0.0.1"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &doc))
			err := ValidateDocument(tt.kind, doc)
			if tt.wantErr {
				assert.Error(t, err)
				var ve ValidationErrors
				assert.ErrorAs(t, err, &ve)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
