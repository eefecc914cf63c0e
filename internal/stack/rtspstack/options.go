package rtspstack

import (
	"fmt"

	"github.com/bluenviron/gortsplib/v5"
)

func parseProtocol(s string) (gortsplib.Protocol, error) {
	switch s {
	case "", "udp":
		return gortsplib.ProtocolUDP, nil

	case "tcp":
		return gortsplib.ProtocolTCP, nil

	default:
		return 0, fmt.Errorf("invalid RTSP protocol '%s'", s)
	}
}

func parseTunnel(s string) (gortsplib.Tunnel, error) {
	switch s {
	case "", "none":
		return gortsplib.TunnelNone, nil

	case "http":
		return gortsplib.TunnelHTTP, nil

	default:
		return 0, fmt.Errorf("invalid RTSP tunnel '%s'", s)
	}
}
