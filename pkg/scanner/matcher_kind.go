package scanner

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiolat/pkg/matcher"
	"github.com/xaionaro-go/audiolat/pkg/matcher/implementations/direct"
	"github.com/xaionaro-go/audiolat/pkg/matcher/implementations/fft"
	"github.com/xaionaro-go/audiolat/pkg/matcher/implementations/inplacefft"
)

// MatcherKind selects one of the built-in matcher implementations.
type MatcherKind uint

const (
	MatcherKindFFT = MatcherKind(iota)
	MatcherKindInPlaceFFT
	MatcherKindDirect
	endOfMatcherKind
)

var _ pflag.Value = (*MatcherKind)(nil)

func (k MatcherKind) String() string {
	switch k {
	case MatcherKindFFT:
		return "fft"
	case MatcherKindInPlaceFFT:
		return "inplacefft"
	case MatcherKindDirect:
		return "direct"
	default:
		return fmt.Sprintf("unknown_matcher_%d", uint(k))
	}
}

func (k *MatcherKind) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	for candidate := MatcherKindFFT; candidate < endOfMatcherKind; candidate++ {
		if candidate.String() == s {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown matcher '%s'", s)
}

func (k *MatcherKind) Type() string {
	return "matcher"
}

// Factory returns the factory of the matcher; windowSizeHint is passed to
// the implementations that can prepare for the window size upfront.
func (k MatcherKind) Factory(windowSizeHint int) (matcher.Factory, error) {
	switch k {
	case MatcherKindFFT:
		return fft.Factory{WindowSizeHint: windowSizeHint}, nil
	case MatcherKindInPlaceFFT:
		return inplacefft.Factory{WindowSizeHint: windowSizeHint}, nil
	case MatcherKindDirect:
		return direct.Factory{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher kind: %v", k)
	}
}
