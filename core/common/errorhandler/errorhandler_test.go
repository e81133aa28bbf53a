package errorhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	error2 "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	eh := NewStackTrace()
	const (
		NCall    = 32
		OneSendN = 4
	)
	var err error2.LErrorDesc
	for i := 0; i < NCall; i++ {
		sendErrInfo := make([]interface{}, 0, OneSendN)
		for j := 0; j < OneSendN; j++ {
			sendErrInfo = append(sendErrInfo, fmt.Sprintf("test%d", j))
		}
		if err == nil {
			err = eh.LNewErrorDesc(error2.ConnectionClosed, "Connection", sendErrInfo...)
		} else {
			err = eh.LWarpErrorDesc(err, sendErrInfo...)
		}
	}
	assert.NotNil(t, err)
	assert.Equal(t, error2.ConnectionClosed, err.Code())
	assert.Equal(t, len(err.Mores()), NCall*OneSendN)
	type ErrorType struct {
		Name  string        `json:"name"`
		Mores []interface{} `json:"mores"`
	}
	var errValue ErrorType
	assert.Nil(t, json.Unmarshal([]byte(err.Error()), &errValue))
	assert.Equal(t, "ConnectionClosed", errValue.Name)
	last, ok := errValue.Mores[len(errValue.Mores)-1].(map[string]interface{})
	if !ok {
		t.Fatal("error information no stack trace")
	}
	stackTrace, ok := last["stack"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, stackTrace, NCall)
	oldLen := len(err.Mores())
	moresBytes, iErr := err.MarshalMores()
	assert.Nil(t, iErr)
	assert.Nil(t, err.UnmarshalMores(moresBytes))
	assert.Equal(t, len(err.Mores()), oldLen+1)
}

func TestWarpDoesNotShareMores(t *testing.T) {
	eh := NewStackTrace()
	base := eh.LNewErrorDesc(error2.Timeout, "timeout", "a")
	w1 := eh.LWarpErrorDesc(base, "b")
	w2 := eh.LWarpErrorDesc(base, "c")
	assert.Equal(t, []interface{}{"a", "b"}, w1.Mores())
	assert.Equal(t, []interface{}{"a", "c"}, w2.Mores())
	assert.Equal(t, []interface{}{"a"}, base.Mores())
}

func TestFromCode(t *testing.T) {
	assert.Nil(t, FromCode(nil, error2.Success))
	desc := FromCode(DefaultErrHandler, error2.NoLogin)
	assert.Equal(t, error2.NoLogin, desc.Code())
	assert.Equal(t, "NoLogin", desc.Message())
}

func TestErrorsIs(t *testing.T) {
	for _, eh := range []error2.LErrors{New(), NewStackTrace()} {
		var err error = eh.LWarpErrorDesc(ErrTimeout, "player actor")
		assert.True(t, errors.Is(err, ErrTimeout))
		assert.False(t, errors.Is(err, ErrNoLogin))
		wrapped := fmt.Errorf("login: %w", err)
		assert.True(t, errors.Is(wrapped, ErrTimeout))
	}
}
