// Package repositories implements local persistence for the multistream viewer.
//
// All state lives in a single SQLite key-value table (see shared/sql). Each record is one
// serialized blob under a well-known key, mirroring browser local storage semantics:
//   - [EntryRepository] : the ordered stream layout under [StreamsKey]
//   - [TokenRepository] : the OAuth access token under [TokenKey]
//
// [RedisSnapshotCache] optionally caches the last directory fetch with a TTL so commands
// can print followed channels without touching the network.
package repositories
