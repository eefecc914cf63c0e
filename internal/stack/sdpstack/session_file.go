package sdpstack

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"

	"github.com/bluenviron/rtpbench/pkg/stack"
)

// FileName returns the session file of the i-th stream.
// A pattern containing %d is formatted with the stream index;
// otherwise streams after the first one get an index suffix.
func FileName(pattern string, index int) string {
	if strings.Contains(pattern, "%d") {
		return fmt.Sprintf(pattern, index)
	}

	if index == 0 {
		return pattern
	}

	ext := filepath.Ext(pattern)
	return strings.TrimSuffix(pattern, ext) + "_" + strconv.Itoa(index) + ext
}

// sessionInfo describes the incoming side of a stream.
type sessionInfo struct {
	Address     string
	Port        int
	PayloadType uint8
	Codec       string
	ClockRate   int
}

func addressType(host string) string {
	ip := net.ParseIP(host)
	if ip != nil && ip.To4() == nil {
		return "IP6"
	}
	return "IP4"
}

func (si sessionInfo) marshal() ([]byte, error) {
	pt := strconv.Itoa(int(si.PayloadType))

	sd := &psdp.SessionDescription{
		Version: 0,
		Origin: psdp.Origin{
			Username:       "-",
			SessionID:      0,
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    addressType(si.Address),
			UnicastAddress: si.Address,
		},
		SessionName: "rtpbench",
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: addressType(si.Address),
			Address:     &psdp.Address{Address: si.Address},
		},
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: []*psdp.MediaDescription{
			{
				MediaName: psdp.MediaName{
					Media:   "video",
					Port:    psdp.RangedPort{Value: si.Port},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{pt},
				},
				Attributes: []psdp.Attribute{
					{
						Key:   "rtpmap",
						Value: pt + " " + si.Codec + "/" + strconv.Itoa(si.ClockRate),
					},
				},
			},
		},
	}

	return sd.Marshal()
}

func (si *sessionInfo) unmarshal(byts []byte) error {
	var sd psdp.SessionDescription
	err := sd.Unmarshal(byts)
	if err != nil {
		return err
	}

	var md *psdp.MediaDescription
	for _, m := range sd.MediaDescriptions {
		if m.MediaName.Media == "video" {
			md = m
			break
		}
	}
	if md == nil {
		return fmt.Errorf("no video media found")
	}

	if len(md.MediaName.Formats) == 0 {
		return fmt.Errorf("media has no formats")
	}

	pt, err := strconv.ParseUint(md.MediaName.Formats[0], 10, 8)
	if err != nil {
		return fmt.Errorf("invalid payload type '%s'", md.MediaName.Formats[0])
	}
	si.PayloadType = uint8(pt)
	si.Port = md.MediaName.Port.Value

	switch {
	case md.ConnectionInformation != nil && md.ConnectionInformation.Address != nil:
		si.Address = md.ConnectionInformation.Address.Address
	case sd.ConnectionInformation != nil && sd.ConnectionInformation.Address != nil:
		si.Address = sd.ConnectionInformation.Address.Address
	}

	for _, attr := range md.Attributes {
		if attr.Key != "rtpmap" {
			continue
		}

		// <payload type> <encoding name>/<clock rate>[/<params>]
		fields := strings.SplitN(attr.Value, " ", 2)
		if len(fields) != 2 || fields[0] != md.MediaName.Formats[0] {
			continue
		}

		parts := strings.Split(fields[1], "/")
		si.Codec = parts[0]
		if len(parts) >= 2 {
			si.ClockRate, err = strconv.Atoi(parts[1])
			if err != nil {
				return fmt.Errorf("invalid clock rate '%s'", parts[1])
			}
		}
	}

	if si.Codec == "" {
		return fmt.Errorf("rtpmap of payload type %d not found", si.PayloadType)
	}

	return nil
}

func writeSessionFile(path string, si sessionInfo) error {
	byts, err := si.marshal()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		err = os.MkdirAll(dir, 0o755)
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, byts, 0o644)
}

func readSessionFile(path string) (*sessionInfo, error) {
	byts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var si sessionInfo
	err = si.unmarshal(byts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &si, nil
}

func (si sessionInfo) check() error {
	if !strings.EqualFold(si.Codec, "H265") {
		return fmt.Errorf("unsupported codec '%s'", si.Codec)
	}
	if si.ClockRate != stack.ClockRate {
		return fmt.Errorf("unsupported clock rate %d", si.ClockRate)
	}
	return nil
}
