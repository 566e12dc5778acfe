package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestMerge(t *testing.T) {
	remote := SecurityRule{
		ID:          "id-1",
		Name:        "allow-web",
		Location:    Location{Folder: "Texas"},
		Rulebase:    RulebasePre,
		Description: ptr("set in the console"),
		Source:      []string{"10.0.0.0/8", "192.168.0.0/16"},
		Destination: []string{"any"},
		Action:      ptr("allow"),
		LogEnd:      ptr(true),
	}

	tests := []struct {
		name        string
		desired     SecurityRule
		wantChanged []string
		check       func(t *testing.T, merged SecurityRule)
	}{
		{
			name:        "nothing managed",
			desired:     SecurityRule{Name: "allow-web", Location: Location{Folder: "Texas"}},
			wantChanged: nil,
		},
		{
			name: "lists compare as sets",
			desired: SecurityRule{
				Name:   "allow-web",
				Source: []string{"192.168.0.0/16", "10.0.0.0/8"},
				Action: ptr("allow"),
			},
			wantChanged: nil,
		},
		{
			name: "changed fields are replaced, others kept",
			desired: SecurityRule{
				Name:   "allow-web",
				Action: ptr("deny"),
				Tag:    []string{"web"},
			},
			wantChanged: []string{"tag", "action"},
			check: func(t *testing.T, merged SecurityRule) {
				assert.Equal(t, "deny", *merged.Action)
				assert.Equal(t, []string{"web"}, merged.Tag)
				assert.Equal(t, "set in the console", *merged.Description)
				assert.Equal(t, "id-1", merged.ID)
				assert.True(t, *merged.LogEnd)
			},
		},
		{
			name:        "false is a managed value",
			desired:     SecurityRule{Name: "allow-web", LogEnd: ptr(false)},
			wantChanged: []string{"log_end"},
		},
		{
			name:        "empty list clears",
			desired:     SecurityRule{Name: "allow-web", Source: []string{}},
			wantChanged: []string{"source"},
			check: func(t *testing.T, merged SecurityRule) {
				assert.Empty(t, merged.Source)
			},
		},
		{
			name:        "nested profile groups",
			desired:     SecurityRule{Name: "allow-web", ProfileSetting: &ProfileSetting{Group: []string{"best-practice"}}},
			wantChanged: []string{"profile_setting"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, changed := Merge(tt.desired, remote)
			assert.Equal(t, tt.wantChanged, changed)
			if tt.check != nil {
				tt.check(t, merged)
			}
		})
	}
}

func TestMergeDoesNotModifyRemote(t *testing.T) {
	remote := Address{ID: "a1", Name: "web", Location: Location{Folder: "Texas"}, IPNetmask: ptr("10.0.0.1")}
	desired := Address{Name: "web", Location: Location{Folder: "Texas"}, IPNetmask: ptr("10.0.0.2")}

	merged, changed := Merge(desired, remote)

	assert.Equal(t, []string{"ip_netmask"}, changed)
	assert.Equal(t, "10.0.0.2", *merged.IPNetmask)
	assert.Equal(t, "10.0.0.1", *remote.IPNetmask)
	assert.Equal(t, "a1", merged.ID)
}

func TestManagedFields(t *testing.T) {
	desired := SecurityRule{Name: "r", Location: Location{Folder: "f"}, Disabled: ptr(false), Service: []string{"any"}}
	assert.Equal(t, []string{"disabled", "service"}, ManagedFields(desired))
}

func TestMergeSwitchesAddressType(t *testing.T) {
	remote := Address{
		ID:          "x1",
		Name:        "web",
		Location:    Location{Folder: "Texas"},
		Description: ptr("kept"),
		IPNetmask:   ptr("10.0.0.0/24"),
	}

	tests := []struct {
		name        string
		desired     Address
		wantChanged []string
		wantType    AddressType
		wantValue   string
	}{
		{
			name:        "netmask to fqdn",
			desired:     Address{Name: "web", FQDN: ptr("web.example.com")},
			wantChanged: []string{"fqdn", "ip_netmask"},
			wantType:    AddressTypeFQDN,
			wantValue:   "web.example.com",
		},
		{
			name:        "netmask to range",
			desired:     Address{Name: "web", IPRange: ptr("10.0.0.1-10.0.0.9")},
			wantChanged: []string{"ip_range", "ip_netmask"},
			wantType:    AddressTypeIPRange,
			wantValue:   "10.0.0.1-10.0.0.9",
		},
		{
			name:        "same type keeps nothing else",
			desired:     Address{Name: "web", IPNetmask: ptr("10.0.1.0/24")},
			wantChanged: []string{"ip_netmask"},
			wantType:    AddressTypeIPNetmask,
			wantValue:   "10.0.1.0/24",
		},
		{
			name:        "value not managed",
			desired:     Address{Name: "web", Description: ptr("new")},
			wantChanged: []string{"description"},
			wantType:    AddressTypeIPNetmask,
			wantValue:   "10.0.0.0/24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, changed := Merge(tt.desired, remote)
			assert.Equal(t, tt.wantChanged, changed)

			typ, value := merged.Type()
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantValue, value)
			assert.NoError(t, merged.Validate())
		})
	}
	assert.NotNil(t, remote.IPNetmask, "remote is not modified")
}
