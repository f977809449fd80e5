// Package grpcjson registers a JSON codec with gRPC so services can exchange plain Go
// structs instead of generated protobuf messages. Clients select it per call with
// grpc.CallContentSubtype(grpcjson.Name).
package grpcjson

import (
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

const Name = "json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (Codec) Name() string                       { return Name }

func init() {
	encoding.RegisterCodec(Codec{})
}
