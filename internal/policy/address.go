package policy

// Address is an address object. Exactly one of IPNetmask, IPRange, IPWildcard or
// FQDN must be set.
type Address struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty" jsonschema:"-" reconcile:"-"`
	Name     string `json:"name" yaml:"name" jsonschema:"minLength=1,maxLength=63" validate:"required,max=63" reconcile:"-"`
	Location `yaml:",inline" reconcile:"-"`

	Description *string  `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"maxLength=1023" validate:"omitempty,max=1023"`
	Tag         []string `json:"tag,omitempty" yaml:"tag,omitempty" validate:"omitempty,dive,required,max=127"`
	IPNetmask   *string  `json:"ip_netmask,omitempty" yaml:"ip_netmask,omitempty" validate:"omitempty,cidr|ip"`
	IPRange     *string  `json:"ip_range,omitempty" yaml:"ip_range,omitempty" jsonschema:"pattern=^[0-9a-fA-F.:]+-[0-9a-fA-F.:]+$"`
	IPWildcard  *string  `json:"ip_wildcard,omitempty" yaml:"ip_wildcard,omitempty"`
	FQDN        *string  `json:"fqdn,omitempty" yaml:"fqdn,omitempty" jsonschema:"minLength=1,maxLength=255" validate:"omitempty,fqdn"`
}

// AddressType names the value kind of an address object.
type AddressType string

const (
	AddressTypeIPNetmask  AddressType = "ip-netmask"
	AddressTypeIPRange    AddressType = "ip-range"
	AddressTypeIPWildcard AddressType = "ip-wildcard"
	AddressTypeFQDN       AddressType = "fqdn"
)

// Kind returns KindAddress.
func (Address) Kind() Kind { return KindAddress }

// RecordName returns the address name.
func (a Address) RecordName() string { return a.Name }

// RecordID returns the store-assigned id, empty for desired state.
func (a Address) RecordID() string { return a.ID }

// WithID returns a copy carrying id.
func (a Address) WithID(id string) Address {
	a.ID = id
	return a
}

// RecordScope resolves the container. Addresses have no rulebase.
func (a Address) RecordScope(Rulebase) (Scope, error) {
	container, err := a.Location.Container()
	if err != nil {
		return Scope{}, err
	}
	return Scope{Container: container}, nil
}

// InScope returns a copy placed in scope.
func (a Address) InScope(scope Scope) Address {
	a.Location = LocationFor(scope.Container)
	return a
}

// ExclusiveFields lists the address value fields; setting one clears the
// others on update.
func (Address) ExclusiveFields() [][]string {
	return [][]string{{"ip_netmask", "ip_range", "ip_wildcard", "fqdn"}}
}

// ForCreate returns the address unchanged; addresses have no create defaults.
func (a Address) ForCreate() Address { return a }

// Type returns the address type and its value, or empty strings when none is set.
func (a Address) Type() (AddressType, string) {
	switch {
	case a.IPNetmask != nil:
		return AddressTypeIPNetmask, *a.IPNetmask
	case a.IPRange != nil:
		return AddressTypeIPRange, *a.IPRange
	case a.IPWildcard != nil:
		return AddressTypeIPWildcard, *a.IPWildcard
	case a.FQDN != nil:
		return AddressTypeFQDN, *a.FQDN
	default:
		return "", ""
	}
}

// Validate checks value constraints that the JSON schema cannot express.
func (a Address) Validate() error {
	errs := structErrors(a)
	if _, err := a.Location.Container(); err != nil {
		errs.Add("folder", err.Error())
	}

	set := 0
	for _, v := range []*string{a.IPNetmask, a.IPRange, a.IPWildcard, a.FQDN} {
		if v != nil {
			set++
		}
	}
	if set != 1 {
		errs.Add("ip_netmask", "exactly one of ip_netmask, ip_range, ip_wildcard or fqdn must be set", set)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
