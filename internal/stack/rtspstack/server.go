package rtspstack

import (
	"fmt"
	"sync"
	"time"

	"github.com/bluenviron/gortsplib/v5"
	"github.com/bluenviron/gortsplib/v5/pkg/base"
	"github.com/bluenviron/gortsplib/v5/pkg/description"
	"github.com/bluenviron/gortsplib/v5/pkg/format"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/pkg/stack"
)

func findH265(desc *description.Session) *format.H265 {
	for _, medi := range desc.Medias {
		for _, forma := range medi.Formats {
			if h265, ok := forma.(*format.H265); ok {
				return h265
			}
		}
	}
	return nil
}

// server accepts a single publisher. When echo is set, the published
// stream is served back to readers.
type server struct {
	log      logrus.FieldLogger
	onPacket stack.PacketHandler
	echo     bool

	s         *gortsplib.Server
	mutex     sync.RWMutex
	stream    *gortsplib.ServerStream
	publisher *gortsplib.ServerSession
}

func (sh *server) initialize(conf stack.StreamConf, udp bool, s *Stack) error {
	sh.s = &gortsplib.Server{
		Handler:     sh,
		RTSPAddress: conf.LocalHostPort(),
	}

	if udp {
		sh.s.UDPRTPAddress = conf.LocalHostPort()
		sh.s.UDPRTCPAddress = hostPort(conf.LocalAddress, conf.LocalPort+1)
	}

	if conf.SRTP != nil {
		var err error
		sh.s.TLSConfig, err = serverTLSConfig(s.TLSCert, s.TLSKey)
		if err != nil {
			return err
		}
	}

	err := sh.s.Start()
	if err != nil {
		return err
	}

	sh.log.WithFields(logrus.Fields{"address": sh.s.RTSPAddress}).Debug("server started")
	return nil
}

// Close implements stack.Receiver.
func (sh *server) Close() {
	sh.s.Close()

	sh.mutex.Lock()
	defer sh.mutex.Unlock()

	if sh.stream != nil {
		sh.stream.Close()
		sh.stream = nil
	}
}

// OnConnOpen implements gortsplib.ServerHandlerOnConnOpen.
func (sh *server) OnConnOpen(_ *gortsplib.ServerHandlerOnConnOpenCtx) {
	sh.log.Debug("conn opened")
}

// OnConnClose implements gortsplib.ServerHandlerOnConnClose.
func (sh *server) OnConnClose(ctx *gortsplib.ServerHandlerOnConnCloseCtx) {
	sh.log.WithFields(logrus.Fields{"error": ctx.Error}).Debug("conn closed")
}

// OnSessionClose implements gortsplib.ServerHandlerOnSessionClose.
func (sh *server) OnSessionClose(ctx *gortsplib.ServerHandlerOnSessionCloseCtx) {
	sh.mutex.Lock()
	defer sh.mutex.Unlock()

	if ctx.Session != sh.publisher {
		return
	}

	sh.log.WithFields(logrus.Fields{"error": ctx.Error}).Info("publisher left")

	sh.publisher = nil
	if sh.stream != nil {
		sh.stream.Close()
		sh.stream = nil
	}
}

// OnDescribe implements gortsplib.ServerHandlerOnDescribe.
func (sh *server) OnDescribe(
	_ *gortsplib.ServerHandlerOnDescribeCtx,
) (*base.Response, *gortsplib.ServerStream, error) {
	sh.mutex.RLock()
	defer sh.mutex.RUnlock()

	if sh.stream == nil {
		return &base.Response{
			StatusCode: base.StatusNotFound,
		}, nil, nil
	}

	return &base.Response{
		StatusCode: base.StatusOK,
	}, sh.stream, nil
}

// OnAnnounce implements gortsplib.ServerHandlerOnAnnounce.
func (sh *server) OnAnnounce(ctx *gortsplib.ServerHandlerOnAnnounceCtx) (*base.Response, error) {
	if findH265(ctx.Description) == nil {
		return &base.Response{
			StatusCode: base.StatusBadRequest,
		}, fmt.Errorf("no H265 media announced")
	}

	sh.mutex.Lock()
	defer sh.mutex.Unlock()

	if sh.publisher != nil {
		return &base.Response{
			StatusCode: base.StatusBadRequest,
		}, fmt.Errorf("someone is already publishing")
	}

	if sh.echo {
		sh.stream = &gortsplib.ServerStream{
			Server: sh.s,
			Desc:   ctx.Description,
		}
		err := sh.stream.Initialize()
		if err != nil {
			sh.stream = nil
			return &base.Response{
				StatusCode: base.StatusInternalServerError,
			}, err
		}
	}

	sh.publisher = ctx.Session

	return &base.Response{
		StatusCode: base.StatusOK,
	}, nil
}

// OnSetup implements gortsplib.ServerHandlerOnSetup.
func (sh *server) OnSetup(
	ctx *gortsplib.ServerHandlerOnSetupCtx,
) (*base.Response, *gortsplib.ServerStream, error) {
	if ctx.Session.State() == gortsplib.ServerSessionStatePreRecord {
		return &base.Response{
			StatusCode: base.StatusOK,
		}, nil, nil
	}

	sh.mutex.RLock()
	defer sh.mutex.RUnlock()

	if sh.stream == nil {
		return &base.Response{
			StatusCode: base.StatusNotFound,
		}, nil, nil
	}

	return &base.Response{
		StatusCode: base.StatusOK,
	}, sh.stream, nil
}

// OnPlay implements gortsplib.ServerHandlerOnPlay.
func (sh *server) OnPlay(_ *gortsplib.ServerHandlerOnPlayCtx) (*base.Response, error) {
	return &base.Response{
		StatusCode: base.StatusOK,
	}, nil
}

// OnRecord implements gortsplib.ServerHandlerOnRecord.
func (sh *server) OnRecord(ctx *gortsplib.ServerHandlerOnRecordCtx) (*base.Response, error) {
	sh.mutex.RLock()
	stream := sh.stream
	sh.mutex.RUnlock()

	ctx.Session.OnPacketRTPAny(func(medi *description.Media, _ format.Format, pkt *rtp.Packet) {
		now := time.Now()

		if sh.onPacket != nil {
			sh.onPacket(pkt, now)
		}

		if stream != nil {
			err := stream.WritePacketRTP(medi, pkt)
			if err != nil {
				sh.log.WithFields(logrus.Fields{"error": err}).Debug("unable to echo packet")
			}
		}
	})

	return &base.Response{
		StatusCode: base.StatusOK,
	}, nil
}
