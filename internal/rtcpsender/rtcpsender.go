// Package rtcpsender contains a utility to generate RTCP sender reports.
package rtcpsender

import (
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtpbench/pkg/ntp"
)

// RTCPSender generates periodic sender reports from outgoing RTP packets.
type RTCPSender struct {
	ClockRate       int
	Period          time.Duration
	TimeNow         func() time.Time
	WritePacketRTCP func(rtcp.Packet)

	mutex sync.Mutex

	// data from RTP packets
	initialized    bool
	lastTimeRTP    uint32
	lastTimeSystem time.Time
	localSSRC      uint32
	packetCount    uint32
	octetCount     uint32

	terminate chan struct{}
	done      chan struct{}
}

// Initialize initializes a RTCPSender.
func (rs *RTCPSender) Initialize() {
	if rs.TimeNow == nil {
		rs.TimeNow = time.Now
	}

	rs.terminate = make(chan struct{})
	rs.done = make(chan struct{})

	go rs.run()
}

// Close closes the RTCPSender.
func (rs *RTCPSender) Close() {
	close(rs.terminate)
	<-rs.done
}

func (rs *RTCPSender) run() {
	defer close(rs.done)

	t := time.NewTicker(rs.Period)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			if report := rs.Report(); report != nil {
				rs.WritePacketRTCP(report)
			}

		case <-rs.terminate:
			return
		}
	}
}

// Report returns a sender report describing the packets sent so far,
// or nil if no packet has been sent yet.
func (rs *RTCPSender) Report() *rtcp.SenderReport {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	if !rs.initialized {
		return nil
	}

	now := rs.TimeNow()
	elapsed := now.Sub(rs.lastTimeSystem)

	return &rtcp.SenderReport{
		SSRC:        rs.localSSRC,
		NTPTime:     ntp.Encode(now),
		RTPTime:     rs.lastTimeRTP + uint32(elapsed.Seconds()*float64(rs.ClockRate)),
		PacketCount: rs.packetCount,
		OctetCount:  rs.octetCount,
	}
}

// ProcessPacketRTP accounts for an outgoing RTP packet.
func (rs *RTCPSender) ProcessPacketRTP(pkt *rtp.Packet) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	rs.initialized = true
	rs.lastTimeRTP = pkt.Timestamp
	rs.lastTimeSystem = rs.TimeNow()
	rs.localSSRC = pkt.SSRC

	rs.packetCount++
	rs.octetCount += uint32(len(pkt.Payload))
}
