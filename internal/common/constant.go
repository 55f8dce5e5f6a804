package common

// AuthorizationScheme prefixes session tokens in the Authorization header.
const AuthorizationScheme = "Bearer"

// ZeroAddress is the sentinel for "no contract deployed".
const ZeroAddress = "0x0000000000000000000000000000000000000000"
