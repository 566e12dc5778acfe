package policy

// Actions accepted for a security rule.
var SecurityRuleActions = []string{"allow", "deny", "drop", "reset-client", "reset-server", "reset-both"}

// ProfileSetting attaches security profile groups to a rule.
type ProfileSetting struct {
	Group []string `json:"group,omitempty" yaml:"group,omitempty" validate:"omitempty,dive,required"`
}

// SecurityRule is a security policy rule, both as desired state read from a
// file and as remote state returned by the store (which also sets ID).
//
// Optional fields are pointers or slices so that "absent" can be told apart
// from "empty": absent fields are left untouched on update.
type SecurityRule struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty" jsonschema:"-" reconcile:"-"`
	Name     string `json:"name" yaml:"name" jsonschema:"minLength=1,maxLength=63" validate:"required,max=63" reconcile:"-"`
	Location `yaml:",inline" reconcile:"-"`
	Rulebase Rulebase `json:"rulebase,omitempty" yaml:"rulebase,omitempty" jsonschema:"enum=pre,enum=post" validate:"omitempty,oneof=pre post" reconcile:"-"`

	Disabled          *bool           `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Description       *string         `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"maxLength=1024" validate:"omitempty,max=1024"`
	Tag               []string        `json:"tag,omitempty" yaml:"tag,omitempty" validate:"omitempty,dive,required,max=127"`
	From              []string        `json:"from,omitempty" yaml:"from,omitempty" validate:"omitempty,dive,required"`
	To                []string        `json:"to,omitempty" yaml:"to,omitempty" validate:"omitempty,dive,required"`
	Source            []string        `json:"source,omitempty" yaml:"source,omitempty" validate:"omitempty,dive,required"`
	NegateSource      *bool           `json:"negate_source,omitempty" yaml:"negate_source,omitempty"`
	SourceUser        []string        `json:"source_user,omitempty" yaml:"source_user,omitempty" validate:"omitempty,dive,required"`
	Destination       []string        `json:"destination,omitempty" yaml:"destination,omitempty" validate:"omitempty,dive,required"`
	NegateDestination *bool           `json:"negate_destination,omitempty" yaml:"negate_destination,omitempty"`
	Application       []string        `json:"application,omitempty" yaml:"application,omitempty" validate:"omitempty,dive,required"`
	Service           []string        `json:"service,omitempty" yaml:"service,omitempty" validate:"omitempty,dive,required"`
	Category          []string        `json:"category,omitempty" yaml:"category,omitempty" validate:"omitempty,dive,required"`
	Action            *string         `json:"action,omitempty" yaml:"action,omitempty" jsonschema:"enum=allow,enum=deny,enum=drop,enum=reset-client,enum=reset-server,enum=reset-both" validate:"omitempty,oneof=allow deny drop reset-client reset-server reset-both"`
	ProfileSetting    *ProfileSetting `json:"profile_setting,omitempty" yaml:"profile_setting,omitempty"`
	LogSetting        *string         `json:"log_setting,omitempty" yaml:"log_setting,omitempty" jsonschema:"maxLength=63"`
	LogStart          *bool           `json:"log_start,omitempty" yaml:"log_start,omitempty"`
	LogEnd            *bool           `json:"log_end,omitempty" yaml:"log_end,omitempty"`
	Schedule          *string         `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Kind returns KindSecurityRule.
func (SecurityRule) Kind() Kind { return KindSecurityRule }

// RecordName returns the rule name.
func (r SecurityRule) RecordName() string { return r.Name }

// RecordID returns the store-assigned id, empty for desired state.
func (r SecurityRule) RecordID() string { return r.ID }

// WithID returns a copy carrying id.
func (r SecurityRule) WithID(id string) SecurityRule {
	r.ID = id
	return r
}

// RecordScope resolves the container and rulebase of the rule. The record's own
// rulebase wins over defaultRulebase.
func (r SecurityRule) RecordScope(defaultRulebase Rulebase) (Scope, error) {
	container, err := r.Location.Container()
	if err != nil {
		return Scope{}, err
	}
	rulebase := r.Rulebase
	if rulebase == "" {
		rulebase = defaultRulebase
	}
	if rulebase == "" {
		rulebase = RulebasePre
	}
	return Scope{Container: container, Rulebase: rulebase}, nil
}

// InScope returns a copy placed in scope, as the store reports it.
func (r SecurityRule) InScope(scope Scope) SecurityRule {
	r.Location = LocationFor(scope.Container)
	r.Rulebase = scope.Rulebase
	return r
}

// ForCreate fills the defaults the store expects for a new rule: every match
// list defaults to "any" and the action to "allow".
func (r SecurityRule) ForCreate() SecurityRule {
	any := func(list []string) []string {
		if list == nil {
			return []string{"any"}
		}
		return list
	}
	r.From = any(r.From)
	r.To = any(r.To)
	r.Source = any(r.Source)
	r.SourceUser = any(r.SourceUser)
	r.Destination = any(r.Destination)
	r.Application = any(r.Application)
	r.Service = any(r.Service)
	r.Category = any(r.Category)
	if r.Action == nil {
		allow := "allow"
		r.Action = &allow
	}
	return r
}

// Validate checks value constraints that the JSON schema cannot express.
func (r SecurityRule) Validate() error {
	errs := structErrors(r)
	if _, err := r.Location.Container(); err != nil {
		errs.Add("folder", err.Error())
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}
