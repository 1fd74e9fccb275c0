package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/gwerr"
)

func frame(payload []byte) []byte {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, payload)
	return buf.Bytes()
}

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"type":"get_scene_info","params":{}}`)
	data := frame(payload)

	assert.Equal(t, uint32(len(payload)), binary.BigEndian.Uint32(data[:4]))

	got, err := ReadFrame(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameLoopsOverShortReads(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1000)
	r := iotest.OneByteReader(bytes.NewReader(frame(payload)))

	got, err := ReadFrame(r, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1000)
}

func TestReadFrameZeroLength(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0, 0, 0}), 0)
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeProtocol, gwerr.CodeOf(err))
}

func TestReadFrameTooLarge(t *testing.T) {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], MaxMessageSize+1)

	_, err := ReadFrame(bytes.NewReader(header[:]), 0)
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeProtocol, gwerr.CodeOf(err))
	assert.Contains(t, err.Error(), "message too large")
}

func TestReadFrameCustomLimit(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(frame([]byte("0123456789"))), 5)
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeProtocol, gwerr.CodeOf(err))
}

func TestReadFramePeerClosedMidPayload(t *testing.T) {
	data := frame([]byte(`{"type":"x"}`))
	_, err := ReadFrame(bytes.NewReader(data[:len(data)-3]), 0)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestReadFramePeerClosedBeforeHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrConnectionClosed)

	_, err = ReadFrame(bytes.NewReader([]byte{0, 0}), 0)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestReadFrameOtherErrorsWrap(t *testing.T) {
	_, err := ReadFrame(iotest.ErrReader(io.ErrClosedPipe), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NotErrorIs(t, err, ErrConnectionClosed)
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"create_node","params":{"definition_id":"blend"}}`))
	require.NoError(t, err)
	assert.Equal(t, "create_node", req.Type)
	assert.JSONEq(t, `{"definition_id":"blend"}`, string(req.Params))
}

func TestDecodeRequestInvalidJSON(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"type":`))
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeProtocol, gwerr.CodeOf(err))
	assert.Contains(t, err.Error(), "Invalid JSON")
}

func TestEncodeResponseSuccessNilResult(t *testing.T) {
	data, err := EncodeResponse(Success(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","result":{}}`, string(data))
}

func TestEncodeResponseFailure(t *testing.T) {
	data, err := EncodeResponse(Failure(gwerr.Protocol("bad <frame>")))
	require.NoError(t, err)
	assert.Equal(t, `{"status":"error","message":"bad <frame>"}`, string(data))
}

func TestEncodeResponseSanitizesNonFinite(t *testing.T) {
	resp := Success(map[string]any{
		"pos":   []any{math.Inf(1), 1.5},
		"ratio": math.NaN(),
		"low":   math.Inf(-1),
	})
	data, err := EncodeResponse(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","result":{"pos":[1e308,1.5],"ratio":null,"low":-1e308}}`, string(data))
}
