package storage

// Package storage persists the donation ledger.
//
// Two drivers:
//   - "file": the whole ledger is rewritten as one JSON array on every save
//     (compatible with donors.json files from earlier deployments)
//   - "sqlite": optional SQLite backend (build with -tags sqlite)
