package msgparser

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"

	perror "github.com/nyan233/littlegate/core/protocol/error"
	"github.com/nyan233/littlegate/core/protocol/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genStream(r *rand.Rand, n int) ([]packet.Packet, []byte) {
	var stream []byte
	pkts := make([]packet.Packet, 0, n)
	for i := 0; i < n; i++ {
		body := make([]byte, r.Intn(300))
		r.Read(body)
		h := packet.Header{
			ProtocolId: uint16(r.Intn(1 << 16)),
			RpcId:      r.Int31(),
			Status:     packet.MagicNumber,
		}
		stream = packet.AppendEncode(stream, h, body)
		h.BodyLength = int32(len(body))
		pkts = append(pkts, packet.Packet{Header: h, Body: body})
	}
	return pkts, stream
}

func collect(t *testing.T, parser *Parser, chunks [][]byte) []packet.Packet {
	var out []packet.Packet
	for _, c := range chunks {
		pkts, err := parser.Parse(c)
		require.NoError(t, err)
		for _, pkt := range pkts {
			out = append(out, packet.Packet{Header: pkt.Header, Body: append([]byte(nil), pkt.Body...)})
			parser.Free(pkt)
		}
	}
	return out
}

func assertSame(t *testing.T, want, got []packet.Packet) {
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Header, got[i].Header)
		assert.True(t, bytes.Equal(want[i].Body, got[i].Body))
	}
}

func TestParser(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	want, stream := genStream(r, 64)

	// 一次性喂入
	all := collect(t, New(nil, 0, WithMagicCheck(true)), [][]byte{stream})
	assertSame(t, want, all)

	// 每次只喂一个字节
	oneByOne := make([][]byte, 0, len(stream))
	for i := range stream {
		oneByOne = append(oneByOne, stream[i:i+1])
	}
	assertSame(t, want, collect(t, New(nil, 16, WithMagicCheck(true)), oneByOne))

	// 随机切分
	for round := 0; round < 32; round++ {
		var chunks [][]byte
		rest := stream
		for len(rest) > 0 {
			n := r.Intn(64) + 1
			if n > len(rest) {
				n = len(rest)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		assertSame(t, want, collect(t, New(nil, 0, WithMagicCheck(true)), chunks))
	}
}

func TestParserNoAlias(t *testing.T) {
	stream := packet.Encode(packet.Header{ProtocolId: 1, RpcId: 1}, []byte("first"))
	stream = packet.AppendEncode(stream, packet.Header{ProtocolId: 2, RpcId: 2}, []byte("second"))
	parser := New(nil, 0)
	buf := append([]byte(nil), stream...)
	pkts, err := parser.Parse(buf)
	require.NoError(t, err)
	require.Len(t, pkts, 2)
	for i := range buf {
		buf[i] = 0
	}
	assert.Equal(t, "first", string(pkts[0].Body))
	assert.Equal(t, "second", string(pkts[1].Body))
	parser.Free(pkts[0])
	parser.Free(pkts[1])

	// 空body
	pkts, err = parser.Parse(packet.Encode(packet.Header{ProtocolId: 3, RpcId: 3}, nil))
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	assert.Len(t, pkts[0].Body, 0)
	assert.Equal(t, uint16(3), pkts[0].ProtocolId)
}

func TestParserError(t *testing.T) {
	parser := New(nil, 0, WithMaxBodyLength(128), WithMagicCheck(true))
	ok := packet.Encode(packet.Header{ProtocolId: 1, RpcId: 1, Status: packet.MagicNumber}, []byte("ok"))

	// 超过上限的BodyLength
	bad := make([]byte, packet.HeaderSize)
	packet.PutHeader(bad, packet.Header{ProtocolId: 1, BodyLength: 129, RpcId: 2, Status: packet.MagicNumber})
	pkts, err := parser.Parse(append(append([]byte(nil), ok...), bad...))
	assert.Nil(t, pkts)
	require.Error(t, err)
	assert.Equal(t, perror.InvalidParam, err.(perror.LErrorDesc).Code())
	need, state, bufLen := parser.State()
	assert.Equal(t, packet.HeaderSize, need)
	assert.Equal(t, _AwaitingHeader, state)
	assert.Equal(t, 0, bufLen)

	// 负数的BodyLength
	packet.PutHeader(bad, packet.Header{ProtocolId: 1, BodyLength: -1, RpcId: 2, Status: packet.MagicNumber})
	_, err = parser.Parse(bad)
	require.Error(t, err)
	assert.Equal(t, perror.InvalidParam, err.(perror.LErrorDesc).Code())

	// 魔数错误
	packet.PutHeader(bad, packet.Header{ProtocolId: 1, BodyLength: 0, RpcId: 2, Status: 1})
	_, err = parser.Parse(bad)
	require.Error(t, err)
	assert.Equal(t, perror.MalformedHeader, err.(perror.LErrorDesc).Code())

	// 客户端方向不校验魔数
	pkts, err = New(nil, 0).Parse(bad)
	require.NoError(t, err)
	assert.Len(t, pkts, 1)
}

func TestParserHalfState(t *testing.T) {
	parser := New(nil, 0)
	stream := packet.Encode(packet.Header{ProtocolId: 9, RpcId: 9}, []byte("0123456789"))
	pkts, err := parser.Parse(stream[:5])
	require.NoError(t, err)
	assert.Len(t, pkts, 0)
	need, state, bufLen := parser.State()
	assert.Equal(t, packet.HeaderSize, need)
	assert.Equal(t, _AwaitingHeader, state)
	assert.Equal(t, 5, bufLen)

	pkts, err = parser.Parse(stream[5 : packet.HeaderSize+3])
	require.NoError(t, err)
	assert.Len(t, pkts, 0)
	need, state, bufLen = parser.State()
	assert.Equal(t, 10, need)
	assert.Equal(t, _AwaitingBody, state)
	assert.Equal(t, 3, bufLen)

	pkts, err = parser.Parse(stream[packet.HeaderSize+3:])
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	assert.Equal(t, "0123456789", string(pkts[0].Body))
	parser.Release()
	_, _, bufLen = parser.State()
	assert.Equal(t, 0, bufLen)
}

func TestConcurrentHalfParse(t *testing.T) {
	const (
		ConsumerSize   = 16
		ChanBufferSize = 8
		CycleSize      = 50
	)
	want, stream := genStream(rand.New(rand.NewSource(3)), 8)
	producer := func(channels []chan []byte) {
		for i := 0; i < CycleSize; i++ {
			tmpData := stream
			for len(tmpData) > 0 {
				readN := 20
				if len(tmpData) < readN {
					readN = len(tmpData)
				}
				for _, channel := range channels {
					channel <- tmpData[:readN]
				}
				tmpData = tmpData[readN:]
			}
		}
		for _, channel := range channels {
			close(channel)
		}
	}
	sharedPool := NewPacketPool()
	consumer := func(parser *Parser, channel chan []byte, wg *sync.WaitGroup) {
		defer wg.Done()
		var i int
		for data := range channel {
			pkts, err := parser.Parse(data)
			if err != nil {
				t.Error(err)
				return
			}
			for _, pkt := range pkts {
				w := want[i%len(want)]
				assert.Equal(t, w.Header, pkt.Header)
				assert.True(t, bytes.Equal(w.Body, pkt.Body))
				parser.Free(pkt)
				i++
			}
		}
		assert.Equal(t, CycleSize*len(want), i)
	}
	consumerChannels := make([]chan []byte, ConsumerSize)
	for k := range consumerChannels {
		consumerChannels[k] = make(chan []byte, ChanBufferSize)
	}
	var wg sync.WaitGroup
	wg.Add(ConsumerSize)
	for _, v := range consumerChannels {
		go consumer(New(NewDefaultAllocator(sharedPool), 4096), v, &wg)
	}
	go producer(consumerChannels)
	wg.Wait()
}

func BenchmarkParser(b *testing.B) {
	_, stream := genStream(rand.New(rand.NewSource(5)), 32)
	parser := New(nil, 4096)
	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		pkts, err := parser.Parse(stream)
		if err != nil {
			b.Fatal(err)
		}
		for _, pkt := range pkts {
			parser.Free(pkt)
		}
	}
}
