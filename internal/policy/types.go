package policy

import (
	"fmt"
	"strings"
)

// Kind identifies a type of policy object managed by scm-cicd.
type Kind string

const (
	// KindAddress is an address object (ip-netmask, ip-range, ip-wildcard or fqdn).
	KindAddress Kind = "address"
	// KindSecurityRule is a security policy rule.
	KindSecurityRule Kind = "security-rule"
)

// Kinds lists every supported kind in the default apply order: addresses are
// referenced by rules, so they go first.
var Kinds = []Kind{KindAddress, KindSecurityRule}

// ParseKind accepts the canonical kind names plus their plural forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "address", "addresses":
		return KindAddress, nil
	case "security-rule", "security-rules", "rule", "rules":
		return KindSecurityRule, nil
	default:
		return "", fmt.Errorf("unknown kind %q (valid: address, security-rule)", s)
	}
}

// ParseOrder parses a comma separated kind list such as "address,security-rule".
// Every kind may appear at most once.
func ParseOrder(s string) ([]Kind, error) {
	var order []Kind
	seen := make(map[Kind]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		kind, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			return nil, fmt.Errorf("kind %q listed more than once in order %q", kind, s)
		}
		seen[kind] = true
		order = append(order, kind)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("order %q names no kinds", s)
	}
	return order, nil
}

// ContainerType is the organizational scope type of the remote store.
type ContainerType string

const (
	ContainerFolder  ContainerType = "folder"
	ContainerSnippet ContainerType = "snippet"
	ContainerDevice  ContainerType = "device"
)

// ParseContainerType validates a container type name.
func ParseContainerType(s string) (ContainerType, error) {
	switch ContainerType(strings.ToLower(strings.TrimSpace(s))) {
	case ContainerFolder:
		return ContainerFolder, nil
	case ContainerSnippet:
		return ContainerSnippet, nil
	case ContainerDevice:
		return ContainerDevice, nil
	default:
		return "", fmt.Errorf("unknown container type %q (valid: folder, snippet, device)", s)
	}
}

// Container locates a record in the remote store.
type Container struct {
	Type ContainerType `json:"type" yaml:"type"`
	Name string        `json:"name" yaml:"name"`
}

// String renders the container as "type:name".
func (c Container) String() string {
	return fmt.Sprintf("%s:%s", c.Type, c.Name)
}

// Committable reports whether changes in this container can be pushed with a
// commit. The store only commits folders.
func (c Container) Committable() bool {
	return c.Type == ContainerFolder
}

// Rulebase is the ordering tier of a security rule.
type Rulebase string

const (
	RulebasePre  Rulebase = "pre"
	RulebasePost Rulebase = "post"
)

// ParseRulebase validates a rulebase name. An empty string yields the default.
func ParseRulebase(s string) (Rulebase, error) {
	switch Rulebase(strings.ToLower(strings.TrimSpace(s))) {
	case "", RulebasePre:
		return RulebasePre, nil
	case RulebasePost:
		return RulebasePost, nil
	default:
		return "", fmt.Errorf("unknown rulebase %q (valid: pre, post)", s)
	}
}

// Scope is the unit of reconciliation: a container plus, for rules, a rulebase.
// Addresses carry an empty rulebase.
type Scope struct {
	Container Container `json:"container" yaml:"container"`
	Rulebase  Rulebase  `json:"rulebase,omitempty" yaml:"rulebase,omitempty"`
}

// String renders the scope as "type:name" or "type:name/rulebase".
func (s Scope) String() string {
	if s.Rulebase == "" {
		return s.Container.String()
	}
	return fmt.Sprintf("%s/%s", s.Container, s.Rulebase)
}

// Location holds the container fields shared by every record. Exactly one of
// them must be set.
type Location struct {
	Folder  string `json:"folder,omitempty" yaml:"folder,omitempty" jsonschema:"minLength=1,maxLength=64"`
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty" jsonschema:"minLength=1,maxLength=64"`
	Device  string `json:"device,omitempty" yaml:"device,omitempty" jsonschema:"minLength=1,maxLength=64"`
}

// Container returns the single container the location names.
func (l Location) Container() (Container, error) {
	var found []Container
	if l.Folder != "" {
		found = append(found, Container{Type: ContainerFolder, Name: l.Folder})
	}
	if l.Snippet != "" {
		found = append(found, Container{Type: ContainerSnippet, Name: l.Snippet})
	}
	if l.Device != "" {
		found = append(found, Container{Type: ContainerDevice, Name: l.Device})
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return Container{}, fmt.Errorf("exactly one of folder, snippet or device must be set")
	default:
		return Container{}, fmt.Errorf("exactly one of folder, snippet or device must be set, got %d", len(found))
	}
}

// LocationFor builds the Location naming c.
func LocationFor(c Container) Location {
	switch c.Type {
	case ContainerSnippet:
		return Location{Snippet: c.Name}
	case ContainerDevice:
		return Location{Device: c.Name}
	default:
		return Location{Folder: c.Name}
	}
}

// CommitResult is the outcome of a commit (candidate push) in the remote store.
type CommitResult struct {
	JobID   string `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Status  string `json:"status" yaml:"status"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Commit job states as reported by the store.
const (
	CommitStatusSuccess = "SUCCESS"
	CommitStatusFailed  = "FAILED"
	CommitStatusPending = "PENDING"
)

// Succeeded reports whether the commit finished successfully. Some store
// responses omit the status but carry a job id; those count as success.
func (r CommitResult) Succeeded() bool {
	return r.Status == CommitStatusSuccess || (r.Status == "" && r.JobID != "")
}
