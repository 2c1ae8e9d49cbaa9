package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on inbound streams.
const AccessTokenHeaderName = "access_token"
