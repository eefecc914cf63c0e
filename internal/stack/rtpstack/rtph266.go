package rtpstack

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pion/rtp"

	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

const h266NALUTypeFU = 29

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// h266Encoder is a RTP/H266 encoder that emits single NAL unit
// packets and fragmentation units.
// Specification: RFC9328
type h266Encoder struct {
	PayloadType    uint8
	PayloadMaxSize int

	ssrc           uint32
	sequenceNumber uint16
}

func (e *h266Encoder) Init() error {
	if e.PayloadMaxSize < stack.MinPayloadMaxSize {
		return liberrors.ErrInvalidParameter{Name: "payload max size", Value: e.PayloadMaxSize}
	}

	v, err := randUint32()
	if err != nil {
		return err
	}
	e.ssrc = v

	v, err = randUint32()
	if err != nil {
		return err
	}
	e.sequenceNumber = uint16(v)

	return nil
}

func (e *h266Encoder) packet(payload []byte, marker bool) *rtp.Packet {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        rtpVersion,
			PayloadType:    e.PayloadType,
			SequenceNumber: e.sequenceNumber,
			SSRC:           e.ssrc,
			Marker:         marker,
		},
		Payload: payload,
	}
	e.sequenceNumber++
	return pkt
}

// Encode encodes an access unit into RTP/H266 packets.
func (e *h266Encoder) Encode(au [][]byte) ([]*rtp.Packet, error) {
	var ret []*rtp.Packet

	for i, nalu := range au {
		marker := i == len(au)-1

		if len(nalu) <= e.PayloadMaxSize {
			ret = append(ret, e.packet(nalu, marker))
			continue
		}

		ret = append(ret, e.fragment(nalu, marker)...)
	}

	return ret, nil
}

func (e *h266Encoder) fragment(nalu []byte, marker bool) []*rtp.Packet {
	typ := nalu[1] >> 3
	hdr0 := nalu[0]
	hdr1 := (nalu[1] & 0x07) | (h266NALUTypeFU << 3)

	body := nalu[2:]
	avail := e.PayloadMaxSize - 3
	n := (len(body) + avail - 1) / avail

	ret := make([]*rtp.Packet, n)

	for i := range n {
		chunk := body[:min(avail, len(body))]
		body = body[len(chunk):]

		fuHeader := typ
		if i == 0 {
			fuHeader |= 0x80
		}

		last := i == n-1
		if last {
			fuHeader |= 0x40
			if marker {
				fuHeader |= 0x20
			}
		}

		payload := make([]byte, 3+len(chunk))
		payload[0] = hdr0
		payload[1] = hdr1
		payload[2] = fuHeader
		copy(payload[3:], chunk)

		ret[i] = e.packet(payload, last && marker)
	}

	return ret
}
