package scm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"scmcicd/internal/policy"
	"scmcicd/pkg/logging"
)

const (
	securityRulesPath = "/config/security/v1/security-rules"
	addressesPath     = "/config/objects/v1/addresses"
)

// containerQuery selects a container in list calls.
func containerQuery(c policy.Container) url.Values {
	q := url.Values{}
	q.Set(string(c.Type), c.Name)
	return q
}

// requestBody encodes a record for create/update. The id travels in the path
// and the rulebase as the position parameter, so neither is sent in the body.
func requestBody(record interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	delete(body, "id")
	delete(body, "rulebase")
	return body, nil
}

type createdObject struct {
	ID string `json:"id"`
}

// objectStore implements the CRUD calls shared by every kind.
type objectStore[T policy.Record[T]] struct {
	client *Client
	path   string
	// positioned stores pass the scope rulebase as the position parameter.
	positioned bool
}

func (s *objectStore[T]) query(scope policy.Scope) url.Values {
	q := url.Values{}
	if s.positioned {
		rulebase := scope.Rulebase
		if rulebase == "" {
			rulebase = policy.RulebasePre
		}
		q.Set("position", string(rulebase))
	}
	return q
}

// List returns every object visible in the scope's container, inherited ones
// included; callers filter by location when they need exact matches.
func (s *objectStore[T]) List(ctx context.Context, scope policy.Scope) ([]T, error) {
	q := s.query(scope)
	for k, v := range containerQuery(scope.Container) {
		q[k] = v
	}
	records, err := listAll[T](ctx, s.client, s.path, q)
	if err != nil {
		return nil, err
	}
	if s.positioned {
		for i, r := range records {
			records[i] = setRulebase(r, scope.Rulebase)
		}
	}
	logging.Debug(subsystem, "Listed %d object(s) at %s in %s", len(records), s.path, scope)
	return records, nil
}

// Create creates record in scope and returns the assigned id.
func (s *objectStore[T]) Create(ctx context.Context, scope policy.Scope, record T) (string, error) {
	body, err := requestBody(record.InScope(scope))
	if err != nil {
		return "", err
	}
	var created createdObject
	if err := s.client.do(ctx, http.MethodPost, s.path, s.query(scope), body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("create %s %q: response carried no id", record.Kind(), record.RecordName())
	}
	return created.ID, nil
}

// Update replaces the object id with record.
func (s *objectStore[T]) Update(ctx context.Context, scope policy.Scope, id string, record T) error {
	body, err := requestBody(record.InScope(scope))
	if err != nil {
		return err
	}
	return s.client.do(ctx, http.MethodPut, s.path+"/"+url.PathEscape(id), s.query(scope), body, nil)
}

// Delete removes the object id.
func (s *objectStore[T]) Delete(ctx context.Context, scope policy.Scope, id string) error {
	return s.client.do(ctx, http.MethodDelete, s.path+"/"+url.PathEscape(id), s.query(scope), nil, nil)
}

func setRulebase[T any](record T, rulebase policy.Rulebase) T {
	if r, ok := any(record).(policy.SecurityRule); ok {
		r.Rulebase = rulebase
		return any(r).(T)
	}
	return record
}

// SecurityRuleStore manages security rules.
type SecurityRuleStore struct {
	objectStore[policy.SecurityRule]
}

// SecurityRules returns the security rule store.
func (c *Client) SecurityRules() *SecurityRuleStore {
	return &SecurityRuleStore{objectStore[policy.SecurityRule]{client: c, path: securityRulesPath, positioned: true}}
}

// AddressStore manages address objects.
type AddressStore struct {
	objectStore[policy.Address]
}

// Addresses returns the address store.
func (c *Client) Addresses() *AddressStore {
	return &AddressStore{objectStore[policy.Address]{client: c, path: addressesPath}}
}

// DetectContainerType finds whether name is a folder, snippet or device by
// listing addresses in each in turn.
func (c *Client) DetectContainerType(ctx context.Context, name string) (policy.ContainerType, error) {
	var lastErr error
	for _, typ := range []policy.ContainerType{policy.ContainerFolder, policy.ContainerSnippet, policy.ContainerDevice} {
		q := containerQuery(policy.Container{Type: typ, Name: name})
		q.Set("limit", "1")
		err := c.do(ctx, http.MethodGet, addressesPath, q, nil, nil)
		if err == nil {
			logging.Debug(subsystem, "Container %q is a %s", name, typ)
			return typ, nil
		}
		if isFatal(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("container %q is not a known folder, snippet or device: %w", name, lastErr)
}

func isFatal(err error) bool {
	var f interface{ Fatal() bool }
	return errors.As(err, &f) && f.Fatal()
}
