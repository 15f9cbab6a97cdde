package wav

import (
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
)

const Priority = 100

func init() {
	audiofile.RegisterDecoder(Priority, Decoder{})
}
