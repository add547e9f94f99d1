// Package monitor implements the gRPC transport for manual poll triggers.
//
// The service has a single unary method, CheckNow, declared with a
// hand-written descriptor over well-known types: the request is
// google.protobuf.Empty and the reply a google.protobuf.Struct with the
// cycle report. No generated code is needed on either side.
package monitor
