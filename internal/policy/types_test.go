package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"address", KindAddress, false},
		{"Addresses", KindAddress, false},
		{"security-rule", KindSecurityRule, false},
		{"rules", KindSecurityRule, false},
		{" rule ", KindSecurityRule, false},
		{"nat-rule", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrder(t *testing.T) {
	order, err := ParseOrder("security-rule, address")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindSecurityRule, KindAddress}, order)

	_, err = ParseOrder("address,addresses")
	assert.Error(t, err)

	_, err = ParseOrder(" , ")
	assert.Error(t, err)
}

func TestParseRulebase(t *testing.T) {
	rb, err := ParseRulebase("")
	require.NoError(t, err)
	assert.Equal(t, RulebasePre, rb)

	rb, err = ParseRulebase("POST")
	require.NoError(t, err)
	assert.Equal(t, RulebasePost, rb)

	_, err = ParseRulebase("middle")
	assert.Error(t, err)
}

func TestLocationContainer(t *testing.T) {
	c, err := Location{Folder: "Texas"}.Container()
	require.NoError(t, err)
	assert.Equal(t, Container{Type: ContainerFolder, Name: "Texas"}, c)
	assert.True(t, c.Committable())

	c, err = Location{Snippet: "shared"}.Container()
	require.NoError(t, err)
	assert.False(t, c.Committable())
	assert.Equal(t, "snippet:shared", c.String())

	_, err = Location{}.Container()
	assert.Error(t, err)

	_, err = Location{Folder: "a", Device: "b"}.Container()
	assert.Error(t, err)

	assert.Equal(t, Location{Device: "fw1"}, LocationFor(Container{Type: ContainerDevice, Name: "fw1"}))
}

func TestScopeString(t *testing.T) {
	folder := Container{Type: ContainerFolder, Name: "Texas"}
	assert.Equal(t, "folder:Texas", Scope{Container: folder}.String())
	assert.Equal(t, "folder:Texas/post", Scope{Container: folder, Rulebase: RulebasePost}.String())
}

func TestCommitResultSucceeded(t *testing.T) {
	assert.True(t, CommitResult{Status: CommitStatusSuccess}.Succeeded())
	assert.True(t, CommitResult{JobID: "17"}.Succeeded())
	assert.False(t, CommitResult{}.Succeeded())
	assert.False(t, CommitResult{JobID: "17", Status: CommitStatusFailed}.Succeeded())
}

func TestSecurityRuleRecordScope(t *testing.T) {
	r := SecurityRule{Name: "r1", Location: Location{Folder: "Texas"}}

	scope, err := r.RecordScope("")
	require.NoError(t, err)
	assert.Equal(t, RulebasePre, scope.Rulebase)

	scope, err = r.RecordScope(RulebasePost)
	require.NoError(t, err)
	assert.Equal(t, RulebasePost, scope.Rulebase)

	r.Rulebase = RulebasePre
	scope, err = r.RecordScope(RulebasePost)
	require.NoError(t, err)
	assert.Equal(t, RulebasePre, scope.Rulebase, "record rulebase wins over the default")
}

func TestSecurityRuleForCreate(t *testing.T) {
	deny := "deny"
	r := SecurityRule{Name: "r1", Source: []string{"10.0.0.0/8"}, Action: &deny}.ForCreate()

	assert.Equal(t, []string{"10.0.0.0/8"}, r.Source)
	assert.Equal(t, []string{"any"}, r.Destination)
	assert.Equal(t, []string{"any"}, r.Category)
	assert.Equal(t, "deny", *r.Action)

	r = SecurityRule{Name: "r2"}.ForCreate()
	require.NotNil(t, r.Action)
	assert.Equal(t, "allow", *r.Action)
}

func TestAddressValidate(t *testing.T) {
	ip := "10.0.0.0/24"
	fqdn := "example.com"
	bad := "not an ip"

	tests := []struct {
		name    string
		addr    Address
		wantErr string
	}{
		{"valid netmask", Address{Name: "a", Location: Location{Folder: "f"}, IPNetmask: &ip}, ""},
		{"valid fqdn", Address{Name: "a", Location: Location{Folder: "f"}, FQDN: &fqdn}, ""},
		{"no type", Address{Name: "a", Location: Location{Folder: "f"}}, "exactly one of ip_netmask"},
		{"two types", Address{Name: "a", Location: Location{Folder: "f"}, IPNetmask: &ip, FQDN: &fqdn}, "exactly one of ip_netmask"},
		{"bad netmask", Address{Name: "a", Location: Location{Folder: "f"}, IPNetmask: &bad}, "ip_netmask"},
		{"no container", Address{Name: "a", IPNetmask: &ip}, "folder"},
		{"no name", Address{Location: Location{Folder: "f"}, IPNetmask: &ip}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.addr.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAddressType(t *testing.T) {
	r := "10.0.0.1-10.0.0.9"
	typ, value := Address{IPRange: &r}.Type()
	assert.Equal(t, AddressTypeIPRange, typ)
	assert.Equal(t, r, value)

	typ, _ = Address{}.Type()
	assert.Empty(t, typ)
}

func TestSecurityRuleValidate(t *testing.T) {
	bogus := "permit"
	err := SecurityRule{Name: "r1", Location: Location{Folder: "f"}, Action: &bogus}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action")

	err = SecurityRule{Name: "r1", Location: Location{Folder: "f"}, Tag: []string{""}}.Validate()
	require.Error(t, err)

	assert.NoError(t, SecurityRule{Name: "r1", Location: Location{Folder: "f"}}.Validate())
}
