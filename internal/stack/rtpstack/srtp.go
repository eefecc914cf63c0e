package rtpstack

import (
	"fmt"
	"sync"

	"github.com/pion/srtp/v3"

	"github.com/bluenviron/rtpbench/pkg/stack"
)

// keyingMaterial returns the pre-shared key and salt used by both ends.
// The values are fixed so that independently started senders and
// receivers agree without a key exchange.
func keyingMaterial(keySize int) ([]byte, []byte, srtp.ProtectionProfile, error) {
	switch keySize {
	case 128:
		key := make([]byte, 16)
		for i := range key {
			key[i] = byte(i + 7)
		}
		salt := make([]byte, 14)
		for i := range salt {
			salt[i] = byte(i + 13)
		}
		return key, salt, srtp.ProtectionProfileAes128CmHmacSha1_80, nil

	case 256:
		key := make([]byte, 32)
		for i := range key {
			key[i] = byte(i)
		}
		salt := make([]byte, 12)
		for i := range salt {
			salt[i] = byte(i * 2)
		}
		return key, salt, srtp.ProtectionProfileAeadAes256Gcm, nil
	}

	return nil, nil, 0, fmt.Errorf("unsupported SRTP key size %d", keySize)
}

// srtpContext is a srtp.Context guarded by a mutex.
// A context tracks the rollover counter of each SSRC, therefore each
// direction of a stream gets its own.
type srtpContext struct {
	mutex sync.Mutex
	w     *srtp.Context
}

func newSRTPContext(conf *stack.SRTPConf) (*srtpContext, error) {
	key, salt, profile, err := keyingMaterial(conf.KeySize)
	if err != nil {
		return nil, err
	}

	w, err := srtp.CreateContext(key, salt, profile)
	if err != nil {
		return nil, err
	}

	return &srtpContext{w: w}, nil
}

func (ctx *srtpContext) encryptRTP(dst []byte, plaintext []byte) ([]byte, error) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	return ctx.w.EncryptRTP(dst, plaintext, nil)
}

func (ctx *srtpContext) decryptRTP(dst []byte, encrypted []byte) ([]byte, error) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	return ctx.w.DecryptRTP(dst, encrypted, nil)
}

func (ctx *srtpContext) encryptRTCP(dst []byte, plaintext []byte) ([]byte, error) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	return ctx.w.EncryptRTCP(dst, plaintext, nil)
}

func (ctx *srtpContext) decryptRTCP(dst []byte, encrypted []byte) ([]byte, error) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	return ctx.w.DecryptRTCP(dst, encrypted, nil)
}
