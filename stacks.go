// Package rtpbench contains the benchmark drivers.
package rtpbench

import (
	"github.com/sirupsen/logrus"

	"github.com/bluenviron/rtpbench/internal/conf"
	"github.com/bluenviron/rtpbench/internal/stack/rtpstack"
	"github.com/bluenviron/rtpbench/internal/stack/rtspstack"
	"github.com/bluenviron/rtpbench/internal/stack/sdpstack"
	"github.com/bluenviron/rtpbench/pkg/liberrors"
	"github.com/bluenviron/rtpbench/pkg/stack"
)

// StackNames are the names accepted by NewStack.
var StackNames = []string{"rtsp", "rtp", "sdp"}

// NewStack allocates the stack selected in the configuration.
func NewStack(c *conf.Conf, log logrus.FieldLogger) (stack.Stack, error) {
	switch c.Stack {
	case "rtsp":
		return &rtspstack.Stack{
			Log:      log,
			Protocol: c.RTSPProtocol,
			Tunnel:   c.RTSPTunnel,
			TLSCert:  c.TLSCert,
			TLSKey:   c.TLSKey,
		}, nil

	case "rtp":
		return &rtpstack.Stack{
			Log:        log,
			RTCPPeriod: c.RTCPPeriod,
		}, nil

	case "sdp":
		return &sdpstack.Stack{
			Log:     log,
			SDPFile: c.SDPFile,
		}, nil

	default:
		return nil, liberrors.ErrUnknownStack{Name: c.Stack}
	}
}
