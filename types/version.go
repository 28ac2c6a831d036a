package types

// Version is the benchlink release version.
// The CLI, the stored report schema and the session wire protocol share it.
const Version = "0.3.0"
