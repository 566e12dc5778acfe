package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"sigs.k8s.io/yaml"

	"scmcicd/pkg/logging"
)

// Record is implemented by every policy record type.
type Record[T any] interface {
	Kind() Kind
	RecordName() string
	RecordID() string
	WithID(id string) T
	RecordScope(defaultRulebase Rulebase) (Scope, error)
	InScope(scope Scope) T
	ForCreate() T
	Validate() error
}

// LoadError is a fatal input problem: the file is missing, unreadable or not a
// list of mappings. Problems with a single record are reported as RecordError.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RecordError reports a record that failed validation. Such a record is not
// applied, the remaining records are.
type RecordError struct {
	File  string
	Index int
	Name  string
	Err   error
}

func (e *RecordError) Error() string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("#%d", e.Index+1)
	}
	return fmt.Sprintf("%s record %s: %v", e.File, name, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// LoadOptions tunes loading.
type LoadOptions struct {
	// DefaultRulebase applies to records that do not set their own.
	DefaultRulebase Rulebase
}

// LoadResult holds the records that passed validation in input order plus the
// ones that did not.
type LoadResult[T any] struct {
	Files   []string
	Records []T
	Invalid []*RecordError
}

// legacyKeys maps keys accepted for compatibility onto their canonical form.
var legacyKeys = map[string]string{
	"from_": "from",
	"to_":   "to",
}

// LoadSecurityRules loads security rules from files or glob patterns.
func LoadSecurityRules(patterns []string, opts LoadOptions) (*LoadResult[SecurityRule], error) {
	return Load[SecurityRule](KindSecurityRule, patterns, opts)
}

// LoadAddresses loads address objects from files or glob patterns.
func LoadAddresses(patterns []string, opts LoadOptions) (*LoadResult[Address], error) {
	return Load[Address](KindAddress, patterns, opts)
}

// Load reads records of kind from every file matched by patterns. Each file is
// YAML (or JSON) holding a list of mappings; a single mapping counts as a list
// of one.
func Load[T Record[T]](kind Kind, patterns []string, opts LoadOptions) (*LoadResult[T], error) {
	files, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}

	result := &LoadResult[T]{Files: files}
	seen := make(map[string]string)
	for _, file := range files {
		docs, err := readDocuments(file)
		if err != nil {
			return nil, err
		}
		logging.Debug("Policy", "Read %d %s record(s) from %s", len(docs), kind, file)

		for i, doc := range docs {
			name := documentName(doc)
			record, err := decodeRecord[T](kind, doc)
			if err == nil {
				err = record.Validate()
			}
			if err == nil {
				var scope Scope
				scope, err = record.RecordScope(opts.DefaultRulebase)
				if err == nil {
					identity := scope.String() + "|" + record.RecordName()
					if prev, dup := seen[identity]; dup {
						err = fmt.Errorf("duplicate %s %q in %s (first defined in %s)", kind, record.RecordName(), scope, prev)
					} else {
						seen[identity] = file
					}
				}
			}
			if err != nil {
				recErr := &RecordError{File: file, Index: i, Name: name, Err: err}
				logging.Warn("Policy", "Skipping invalid record: %v", recErr)
				result.Invalid = append(result.Invalid, recErr)
				continue
			}
			result.Records = append(result.Records, record)
		}
	}

	logging.Info("Policy", "Loaded %d valid and %d invalid %s record(s) from %d file(s)",
		len(result.Records), len(result.Invalid), kind, len(files))
	return result, nil
}

// ExpandPatterns resolves glob patterns (including **) to a sorted, de-duplicated
// file list. A pattern without glob syntax must name an existing file.
func ExpandPatterns(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, &LoadError{Path: "", Err: fmt.Errorf("no input files given")}
	}

	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, &LoadError{Path: pattern, Err: fmt.Errorf("invalid pattern: %w", err)}
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr != nil {
				return nil, &LoadError{Path: pattern, Err: fmt.Errorf("file not found")}
			}
			return nil, &LoadError{Path: pattern, Err: fmt.Errorf("not a regular file")}
		}
		sort.Strings(matches)
		for _, m := range matches {
			m = filepath.Clean(m)
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func readDocuments(path string) ([]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("file is empty")}
	}

	data, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("invalid YAML: %w", err)}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var top interface{}
	if err := dec.Decode(&top); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("invalid document: %w", err)}
	}

	switch v := top.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("no records found")}
		}
		return v, nil
	case map[string]interface{}:
		return []interface{}{v}, nil
	case nil:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("no records found")}
	default:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("expected a list of mappings, got %T", top)}
	}
}

func documentName(doc interface{}) string {
	if m, ok := doc.(map[string]interface{}); ok {
		if name, ok := m["name"].(string); ok {
			return name
		}
	}
	return ""
}

func decodeRecord[T Record[T]](kind Kind, doc interface{}) (T, error) {
	var record T
	if m, ok := doc.(map[string]interface{}); ok {
		for legacy, canonical := range legacyKeys {
			v, found := m[legacy]
			if !found {
				continue
			}
			if _, clash := m[canonical]; clash {
				return record, fmt.Errorf("both %q and %q are set", legacy, canonical)
			}
			delete(m, legacy)
			m[canonical] = v
		}
	}

	if err := ValidateDocument(kind, doc); err != nil {
		return record, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return record, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&record); err != nil {
		return record, fmt.Errorf("invalid record: %w", err)
	}
	return record, nil
}
