// Package policy defines the records scm-cicd reconciles and loads them from
// input files.
//
// Two kinds are supported: SecurityRule and Address. Each record lives in
// exactly one container (folder, snippet or device); security rules also sit
// in a rulebase (pre or post). The container plus rulebase form the Scope
// within which names are unique.
//
// Optional record fields are pointers or slices. A field left out of an input
// file is not managed: it is neither compared nor overwritten when the record
// already exists remotely (see Merge).
//
// Loading runs every record through three checks in turn: the JSON schema
// reflected from the record type (unknown keys, types, enums), a strict decode,
// and the record's Validate method (value rules and container). Records that
// fail are returned in LoadResult.Invalid and the rest still load; a file that
// cannot be parsed at all fails the whole load with a *LoadError.
package policy
