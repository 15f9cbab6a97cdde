package ogg

import (
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
)

const Priority = 50

func init() {
	audiofile.RegisterDecoder(Priority, Decoder{})
}
