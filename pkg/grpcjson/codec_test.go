package grpcjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(Name)
	require.NotNil(t, c)

	type msg struct {
		UserID string `json:"user_id"`
		Qty    int    `json:"qty"`
	}
	raw, err := c.Marshal(&msg{UserID: "u1", Qty: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"u1","qty":3}`, string(raw))

	var out msg
	require.NoError(t, c.Unmarshal(raw, &out))
	assert.Equal(t, msg{UserID: "u1", Qty: 3}, out)
}
