// Package config resolves, parses, validates, and defaults dictate's
// runtime configuration: audio format, recorder limits, listener timing,
// the encoder subprocess, and the STT/TTT endpoint addresses.
package config

import "github.com/rbright/dictate/internal/audioframe"

// Config is the fully materialized runtime configuration used by dictated.
type Config struct {
	Audio    AudioConfig
	Recorder RecorderConfig
	Listener ListenerConfig
	Encoder  EncoderConfig
	STT      EndpointConfig
	TTT      EndpointConfig
	Vocab    VocabConfig
	Debug    DebugConfig
	HTTP     HTTPConfig
}

// AudioConfig describes the stream's fixed format.
type AudioConfig struct {
	SampleRate int
	Channels   int
	Blocksize  int
	Dtype      string
}

// Format builds the audioframe.AudioFormat this config describes.
func (a AudioConfig) Format() (audioframe.AudioFormat, error) {
	return audioframe.NewAudioFormat(a.SampleRate, a.Channels, a.Blocksize, audioframe.Dtype(a.Dtype))
}

// RecorderConfig controls the manual-capture service.
type RecorderConfig struct {
	MaxDurationSeconds float64
	MaxFrames          int
}

// ListenerConfig controls the wake+VAD state machine.
type ListenerConfig struct {
	WakeWindowSeconds   float64
	WakeFrameMs         int
	WakeThreshold       float64
	WakeModels          []string
	WakeModelDir        string
	WakeOnnxLib         string
	VadThreshold        float64
	VadMinSilenceMs     int
	VadSpeechPadMs      float64
	VadOnnxLib          string
	VadModelPath        string
	ArmedTimeoutSeconds float64
	MaxUtteranceSeconds float64
	EndHangoverMs       float64
	MaxFrames           int
}

// EncoderConfig describes the external encoder subprocess contract.
type EncoderConfig struct {
	Binary       string
	Args         []string
	ContainerExt string
	TmpDir       string
}

// EndpointConfig points an adapter at a remote STT or TTT endpoint.
type EndpointConfig struct {
	Endpoint    string
	DialTimeout float64 // seconds
}

// VocabConfig controls speech-context phrase boosting passed into STT
// requests.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	EnableGRPCDump  bool
	DumpDir         string
}

// HTTPConfig controls the request/response and streaming surfaces.
type HTTPConfig struct {
	ListenAddr string // TCP address, e.g. ":8080"; empty means unix-socket only
	SocketPath string // explicit unix socket path override
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SpeechPhrase is the normalized phrase payload sent to the STT adapter.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}

// BuildSpeechPhrases flattens the configured vocabulary sets named in
// GlobalSets into a deduplicated phrase list, truncated to MaxPhrases.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	var warnings []Warning
	seen := make(map[string]struct{})
	var phrases []SpeechPhrase

	for _, setName := range cfg.Vocab.GlobalSets {
		set, ok := cfg.Vocab.Sets[setName]
		if !ok {
			warnings = append(warnings, Warning{Message: "unknown vocab set: " + setName})
			continue
		}
		for _, phrase := range set.Phrases {
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(set.Boost)})
			if cfg.Vocab.MaxPhrases > 0 && len(phrases) >= cfg.Vocab.MaxPhrases {
				return phrases, warnings, nil
			}
		}
	}

	return phrases, warnings, nil
}
