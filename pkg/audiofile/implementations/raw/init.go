package raw

import (
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
)

const Priority = 10

func init() {
	audiofile.RegisterDecoder(Priority, Decoder{})
}
