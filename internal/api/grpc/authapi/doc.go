// Package authapi holds the generated protobuf messages and gRPC stubs for authlib.proto.
package authapi

//go:generate protoc -I . --go_out=. --go_opt=paths=source_relative --go-grpc_out=. --go-grpc_opt=paths=source_relative authlib.proto
