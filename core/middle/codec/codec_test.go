package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestCodec(t *testing.T) {
	jc := Get(DefaultCodec)
	require.NotNil(t, jc)
	type login struct {
		Account string
		Level   int
	}
	data, err := jc.Marshal(&login{Account: "foo", Level: 3})
	require.NoError(t, err)
	var got login
	require.NoError(t, jc.Unmarshal(data, &got))
	assert.Equal(t, login{Account: "foo", Level: 3}, got)
	// 空body被视为零值
	assert.NoError(t, jc.Unmarshal(nil, &got))
	assert.Error(t, jc.Unmarshal([]byte("{bad"), &got))

	pc := Get("protobuf")
	require.NotNil(t, pc)
	data, err = pc.Marshal(wrapperspb.String("hello"))
	require.NoError(t, err)
	msg := new(wrapperspb.StringValue)
	require.NoError(t, pc.Unmarshal(data, msg))
	assert.Equal(t, "hello", msg.GetValue())
	_, err = pc.Marshal(&got)
	assert.Error(t, err)
	assert.Error(t, pc.Unmarshal(data, &got))

	assert.Nil(t, Get("gob"))
	assert.Panics(t, func() {
		Register(nil)
	})
}
