package audiofile

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type decoderWithPriority struct {
	Priority int
	Decoder
}

var (
	decoderRegistry       = map[reflect.Type]decoderWithPriority{}
	decoderRegistryLocker sync.Mutex
)

// RegisterDecoder makes a decoder available to Load and LoadFile. It is
// supposed to be called from init() of the implementation packages.
func RegisterDecoder(
	priority int,
	decoder Decoder,
) {
	decoderRegistryLocker.Lock()
	defer decoderRegistryLocker.Unlock()
	t := reflect.ValueOf(decoder).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, ok := decoderRegistry[t]; ok {
		panic(fmt.Errorf("there is already registered a decoder of type %v", t))
	}
	decoderRegistry[t] = decoderWithPriority{
		Priority: priority,
		Decoder:  decoder,
	}
}

// Decoders returns the registered decoders, the highest priority first.
func Decoders() []Decoder {
	decoderRegistryLocker.Lock()
	defer decoderRegistryLocker.Unlock()
	var decodersWithPriorities []decoderWithPriority
	for _, decoder := range decoderRegistry {
		decodersWithPriorities = append(decodersWithPriorities, decoder)
	}
	sort.Slice(decodersWithPriorities, func(i, j int) bool {
		return decodersWithPriorities[i].Priority > decodersWithPriorities[j].Priority
	})

	var decoders []Decoder
	for _, decoder := range decodersWithPriorities {
		decoders = append(decoders, decoder.Decoder)
	}
	return decoders
}

// DecoderFor returns the highest priority decoder supporting the extension
// (without the dot, case-insensitive), or nil.
func DecoderFor(ext string) Decoder {
	ext = normalizeExt(ext)
	for _, decoder := range Decoders() {
		for _, supported := range decoder.Extensions() {
			if normalizeExt(supported) == ext {
				return decoder
			}
		}
	}
	return nil
}
